package filter

import (
	"fmt"
	"time"

	"kiddeo/internal/models"
)

// DatePolicy selects how a date_from/date_to window constrains events.
type DatePolicy string

const (
	// DatePolicyStrictDay widens a two-sided window to whole UTC days.
	DatePolicyStrictDay DatePolicy = "strict-day"
	// DatePolicyLegacy compares the calendar dates as given (midnight UTC).
	DatePolicyLegacy DatePolicy = "legacy"
)

// DefaultPageSize is used when criteria do not request a page size.
const DefaultPageSize = 20

// TierPredicate decides whether a ticket tier counts towards an event's price.
type TierPredicate func(tier models.TicketTier, now time.Time) bool

// Config is the engine's immutable behaviour switches.
type Config struct {
	DatePolicy DatePolicy
	PageSize   int
	// CategoryPushdown sends category selections to the store as an IN
	// predicate instead of filtering in memory.
	CategoryPushdown bool
	// FreeTicketFallback lets free-only also accept events whose ticket
	// payload is empty or lists a zero price.
	FreeTicketFallback bool
	FacetConcurrency   int
	Now                func() time.Time
	ActiveTier         TierPredicate
}

func DefaultConfig() Config {
	return Config{
		DatePolicy:         DatePolicyStrictDay,
		PageSize:           DefaultPageSize,
		CategoryPushdown:   true,
		FreeTicketFallback: true,
		FacetConcurrency:   8,
	}
}

// DefaultActiveTier treats a tier as active unless disabled, sold out, or
// outside its sale window.
func DefaultActiveTier(tier models.TicketTier, now time.Time) bool {
	return tier.IsAvailable(now)
}

func (c Config) withDefaults() (Config, error) {
	switch c.DatePolicy {
	case "":
		c.DatePolicy = DatePolicyStrictDay
	case DatePolicyStrictDay, DatePolicyLegacy:
	default:
		return c, fmt.Errorf("unknown date policy %q", c.DatePolicy)
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.FacetConcurrency <= 0 {
		c.FacetConcurrency = 8
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.ActiveTier == nil {
		c.ActiveTier = DefaultActiveTier
	}
	return c, nil
}
