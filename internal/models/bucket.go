package models

// Range is a numeric interval. A nil Max is unbounded above; a nil Min is
// unbounded below (price ranges treat it as 0).
type Range struct {
	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`
}

// Bound returns a pointer to v, for building ranges inline.
func Bound(v float64) *float64 {
	return &v
}

// NewRange builds a closed range.
func NewRange(min, max float64) Range {
	return Range{Min: Bound(min), Max: Bound(max)}
}

// Contains reports whether v lies in the range, bounds inclusive.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Is reports whether the range has exactly the given bounds.
func (r Range) Is(min float64, max *float64) bool {
	if r.Min == nil || *r.Min != min {
		return false
	}
	if max == nil {
		return r.Max == nil
	}
	return r.Max != nil && *r.Max == *max
}

// AgeBucket is a selectable age group on the filter panel.
type AgeBucket struct {
	Slug    string   `json:"slug" yaml:"slug"`
	Label   string   `json:"label" yaml:"label"`
	Aliases []string `json:"-" yaml:"aliases"`
	Range   Range    `json:"range" yaml:"range"`
}

// PriceBucket is a selectable price band on the filter panel.
type PriceBucket struct {
	Slug  string `json:"slug" yaml:"slug"`
	Label string `json:"label" yaml:"label"`
	Range Range  `json:"range" yaml:"range"`
}
