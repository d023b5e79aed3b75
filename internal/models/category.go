package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Category is a listing category. Events reference it by name.
type Category struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

var (
	// lowercase latin letters, digits and hyphens
	slugRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Validate validates the category data
func (c *Category) Validate() error {
	if err := validateCategoryName(c.Name); err != nil {
		return err
	}

	if err := ValidateSlug(c.Slug); err != nil {
		return err
	}

	if len(c.Description) > 500 {
		return errors.New("category description must be less than 500 characters")
	}

	return nil
}

func validateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("category name is required")
	}

	if len(name) > 100 {
		return errors.New("category name must be less than 100 characters")
	}

	return nil
}

// ValidateSlug checks the URL slug format shared by categories, cities and buckets.
func ValidateSlug(slug string) error {
	if slug == "" {
		return errors.New("slug is required")
	}

	if len(slug) > 100 {
		return errors.New("slug must be less than 100 characters")
	}

	if !slugRegex.MatchString(slug) {
		return errors.New("slug can only contain lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return errors.New("slug cannot start or end with a hyphen")
	}

	if strings.Contains(slug, "--") {
		return errors.New("slug cannot contain consecutive hyphens")
	}

	return nil
}
