package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kiddeo/internal/models"
)

// ParseCriteria reads listing query parameters into FilterCriteria.
// Repeatable parameters also accept comma-separated values.
func ParseCriteria(q url.Values) (models.FilterCriteria, error) {
	c := models.FilterCriteria{
		Query:        strings.TrimSpace(q.Get("q")),
		AgeBuckets:   listParam(q, "age"),
		PriceBuckets: listParam(q, "price"),
		Categories:   listParam(q, "category"),
		QuickFilters: listParam(q, "quick"),
		PresetPage:   q.Get("preset_page"),
	}

	var err error
	if c.DateFrom, err = dateParam(q, "date_from"); err != nil {
		return c, err
	}
	if c.DateTo, err = dateParam(q, "date_to"); err != nil {
		return c, err
	}
	if c.AgeMin, err = optionalIntParam(q, "age_min"); err != nil {
		return c, err
	}
	if c.AgeMax, err = optionalIntParam(q, "age_max"); err != nil {
		return c, err
	}
	if c.FreeOnly, err = boolParam(q, "free"); err != nil {
		return c, err
	}
	if c.WithFacets, err = boolParam(q, "facets"); err != nil {
		return c, err
	}
	if c.Page, err = intParam(q, "page"); err != nil {
		return c, err
	}
	if c.PageSize, err = intParam(q, "per_page"); err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dateParam(q url.Values, key string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalIntParam(q url.Values, key string) (*int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", models.ErrInvalidInput, key)
	}
	return &n, nil
}

func intParam(q url.Values, key string) (int, error) {
	n, err := optionalIntParam(q, key)
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}

func boolParam(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", models.ErrInvalidInput, key)
	}
	return b, nil
}
