package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FilterPreset is a stored quick filter, looked up by page and label.
type FilterPreset struct {
	ID        int       `json:"id" db:"id"`
	Page      string    `json:"page" db:"page"`
	Label     string    `json:"label" db:"label"`
	QueryJSON string    `json:"queryJson" db:"query_json"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// PresetQuery is the payload of a quick filter.
type PresetQuery struct {
	AgeGroups  []string          `json:"ageGroups"`
	IsPaid     *bool             `json:"isPaid"`
	PriceRange *PresetPriceRange `json:"priceRange"`
}

type PresetPriceRange struct {
	Min *Price `json:"min"`
	Max *Price `json:"max"`
}

// Range converts the preset price range into a filter range.
func (p PresetPriceRange) Range() Range {
	var r Range
	if p.Min != nil {
		r.Min = Bound(float64(*p.Min))
	}
	if p.Max != nil {
		r.Max = Bound(float64(*p.Max))
	}
	return r
}

// ParseQuery decodes the stored JSON payload.
func (p *FilterPreset) ParseQuery() (PresetQuery, error) {
	var q PresetQuery
	if p.QueryJSON == "" {
		return q, nil
	}
	if err := json.Unmarshal([]byte(p.QueryJSON), &q); err != nil {
		return PresetQuery{}, fmt.Errorf("malformed preset %q: %w", p.Label, err)
	}
	return q, nil
}

// Validate validates the preset data
func (p *FilterPreset) Validate() error {
	if p.Page == "" {
		return fmt.Errorf("%w: preset page is required", ErrInvalidInput)
	}
	if p.Label == "" {
		return fmt.Errorf("%w: preset label is required", ErrInvalidInput)
	}
	if _, err := p.ParseQuery(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
