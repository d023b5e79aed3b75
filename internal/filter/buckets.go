package filter

import (
	"context"
	"errors"

	"kiddeo/internal/models"
)

var canonicalAgeTags = []struct {
	min float64
	max *float64
	tag string
}{
	{0, models.Bound(3), "0-3"},
	{4, models.Bound(7), "4-7"},
	{8, models.Bound(12), "8-12"},
	{13, models.Bound(16), "13-16"},
	{16, nil, "16-plus"},
}

// AgeRangeToPredicate maps a range to its canonical age-group tag. Only exact
// canonical bounds are recognised; any other range matches nothing.
func AgeRangeToPredicate(r models.Range) Predicate {
	for _, c := range canonicalAgeTags {
		if r.Is(c.min, c.max) {
			return Contains{Field: FieldAgeGroups, Substr: c.tag}
		}
	}
	return Nothing{}
}

// ExpandAgeBuckets resolves age bucket slugs. Unknown slugs are ignored.
func (e *Engine) ExpandAgeBuckets(slugs []string) []models.Range {
	var out []models.Range
	for _, slug := range slugs {
		if b, ok := e.catalog.AgeBucket(slug); ok {
			out = append(out, b.Range)
		}
	}
	return out
}

// ExpandPriceBuckets resolves price bucket slugs. Unknown slugs are ignored.
func (e *Engine) ExpandPriceBuckets(slugs []string) []models.Range {
	var out []models.Range
	for _, slug := range slugs {
		if b, ok := e.catalog.PriceBucket(slug); ok {
			out = append(out, b.Range)
		}
	}
	return out
}

// ExpandQuickFilters looks up each preset label on page and folds its
// payload into age and price ranges. Presets accumulate. Missing or
// malformed presets are skipped.
func (e *Engine) ExpandQuickFilters(ctx context.Context, page string, labels []string) (ages, prices []models.Range) {
	if e.presets == nil || len(labels) == 0 {
		return nil, nil
	}

	for _, label := range labels {
		preset, err := e.presets.FindPreset(ctx, page, label)
		if err != nil {
			if errors.Is(err, models.ErrPresetNotFound) {
				e.log.Debug("quick filter not found", "page", page, "label", label)
			} else {
				e.log.Warn("quick filter lookup failed", "page", page, "label", label, "error", err)
			}
			continue
		}
		if preset == nil {
			continue
		}
		q, err := preset.ParseQuery()
		if err != nil {
			e.log.Warn("ignoring malformed quick filter", "page", page, "label", label, "error", err)
			continue
		}

		for _, group := range q.AgeGroups {
			slug, ok := e.catalog.AgeSlugForLabel(group)
			if !ok {
				continue
			}
			if b, ok := e.catalog.AgeBucket(slug); ok {
				ages = append(ages, b.Range)
			}
		}
		if q.IsPaid != nil && !*q.IsPaid {
			prices = append(prices, models.NewRange(0, 0))
		}
		if q.PriceRange != nil {
			prices = append(prices, q.PriceRange.Range())
		}
	}
	return ages, prices
}
