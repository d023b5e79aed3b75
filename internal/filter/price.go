package filter

import (
	"time"

	"kiddeo/internal/models"
)

// ComputeMinActivePrice derives an event's effective price: 0 when the event
// is explicitly free, otherwise the cheapest active tier. Unparseable ticket
// data or no active tier yields nil.
func ComputeMinActivePrice(tickets *string, isPaid *bool, active func(models.TicketTier) bool) *float64 {
	if isPaid != nil && !*isPaid {
		zero := 0.0
		return &zero
	}
	tiers, err := models.ParseTicketTiers(tickets)
	if err != nil || len(tiers) == 0 {
		return nil
	}

	var min *float64
	for _, tier := range tiers {
		if active != nil && !active(tier) {
			continue
		}
		p := float64(tier.Price)
		if min == nil || p < *min {
			min = &p
		}
	}
	return min
}

// MatchesPriceRanges reports whether a derived price falls in any range.
// A free event matches every range whose floor is absent or at most zero.
func MatchesPriceRanges(price *float64, ranges []models.Range) bool {
	if price == nil {
		return false
	}
	for _, r := range ranges {
		if *price == 0 {
			if r.Min == nil || *r.Min <= 0 {
				return true
			}
			continue
		}
		if r.Contains(*price) {
			return true
		}
	}
	return false
}

// ApplyPriceBuckets keeps the events whose derived price matches any of the
// ranges. An empty range list keeps everything.
func ApplyPriceBuckets(events []*models.Event, ranges []models.Range, active func(models.TicketTier) bool) []*models.Event {
	if len(ranges) == 0 {
		return events
	}
	out := make([]*models.Event, 0, len(events))
	for _, e := range events {
		if MatchesPriceRanges(ComputeMinActivePrice(e.Tickets, e.IsPaid, active), ranges) {
			out = append(out, e)
		}
	}
	return out
}

// ApplyCategoryFilter keeps events whose category equals one of names,
// case-sensitively. An empty list keeps everything.
func ApplyCategoryFilter(events []*models.Event, names []string) []*models.Event {
	if len(names) == 0 {
		return events
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]*models.Event, 0, len(events))
	for _, e := range events {
		if _, ok := want[e.Category]; ok {
			out = append(out, e)
		}
	}
	return out
}

// activeAt binds a tier predicate to a point in time.
func activeAt(pred TierPredicate, now time.Time) func(models.TicketTier) bool {
	return func(t models.TicketTier) bool { return pred(t, now) }
}
