package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format accepted for date filters.
const DateLayout = "2006-01-02"

// MaxPageSize caps the number of events per listing page.
const MaxPageSize = 100

// MaxPage caps the requested listing page.
const MaxPage = 10000

// DefaultPresetPage is the page quick filters belong to unless set otherwise.
const DefaultPresetPage = "events"

// FilterCriteria is the typed form of the listing query parameters.
type FilterCriteria struct {
	Query string `json:"query,omitempty"`
	// DateFrom and DateTo are calendar dates at UTC midnight.
	DateFrom     *time.Time `json:"dateFrom,omitempty"`
	DateTo       *time.Time `json:"dateTo,omitempty"`
	AgeMin       *int       `json:"ageMin,omitempty"`
	AgeMax       *int       `json:"ageMax,omitempty"`
	AgeBuckets   []string   `json:"ageBuckets,omitempty"`
	PriceBuckets []string   `json:"priceBuckets,omitempty"`
	FreeOnly     bool       `json:"freeOnly,omitempty"`
	Categories   []string   `json:"categories,omitempty"`
	QuickFilters []string   `json:"quickFilters,omitempty"`
	PresetPage   string     `json:"presetPage,omitempty"`
	Page         int        `json:"page,omitempty"`
	PageSize     int        `json:"pageSize,omitempty"`
	WithFacets   bool       `json:"withFacets,omitempty"`
}

// ParseDate parses a calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must look like %s", ErrInvalidInput, s, DateLayout)
	}
	return d, nil
}

// Validate rejects criteria that cannot describe any sensible listing.
func (c *FilterCriteria) Validate() error {
	if c.AgeMin != nil && *c.AgeMin < 0 {
		return fmt.Errorf("%w: age_min cannot be negative", ErrInvalidInput)
	}
	if c.AgeMax != nil && *c.AgeMax < 0 {
		return fmt.Errorf("%w: age_max cannot be negative", ErrInvalidInput)
	}
	if c.AgeMin != nil && c.AgeMax != nil && *c.AgeMin > *c.AgeMax {
		return fmt.Errorf("%w: age_min must not exceed age_max", ErrInvalidInput)
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateFrom.After(*c.DateTo) {
		return fmt.Errorf("%w: date_from must not be after date_to", ErrInvalidInput)
	}
	if c.Page < 0 || c.Page > MaxPage {
		return fmt.Errorf("%w: page must be between 1 and %d", ErrInvalidInput, MaxPage)
	}
	if c.PageSize < 0 || c.PageSize > MaxPageSize {
		return fmt.Errorf("%w: per_page must be between 1 and %d", ErrInvalidInput, MaxPageSize)
	}
	return nil
}

// WithoutFacetSelections drops the selections that facet counts are computed
// against: categories, age and price buckets, and quick filters.
func (c FilterCriteria) WithoutFacetSelections() FilterCriteria {
	c.Categories = nil
	c.AgeBuckets = nil
	c.PriceBuckets = nil
	c.QuickFilters = nil
	return c
}

// PresetPageOrDefault returns the page quick filters are looked up on.
func (c FilterCriteria) PresetPageOrDefault() string {
	if c.PresetPage == "" {
		return DefaultPresetPage
	}
	return c.PresetPage
}
