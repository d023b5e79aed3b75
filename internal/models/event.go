package models

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// EventStatus represents the moderation state of an event
type EventStatus string

const (
	StatusDraft      EventStatus = "draft"
	StatusModeration EventStatus = "moderation"
	StatusActive     EventStatus = "active"
	StatusRejected   EventStatus = "rejected"
	StatusArchived   EventStatus = "archived"
)

// Event is a listing shown on the city events page.
type Event struct {
	ID          int         `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	City        string      `json:"city" db:"city"`
	Category    string      `json:"category" db:"category"`
	Status      EventStatus `json:"status" db:"status"`
	StartDate   time.Time   `json:"startDate" db:"start_date"`
	EndDate     time.Time   `json:"endDate" db:"end_date"`
	AgeFrom     *int        `json:"ageFrom" db:"age_from"`
	AgeTo       *int        `json:"ageTo" db:"age_to"`
	AgeGroups   string      `json:"ageGroups" db:"age_groups"`
	IsPaid      *bool       `json:"isPaid" db:"is_paid"`
	// Tickets holds the serialized tier list. It may be null, empty or malformed.
	Tickets    *string   `json:"tickets" db:"tickets"`
	ViewCount  int       `json:"viewCount" db:"view_count"`
	IsPopular  bool      `json:"isPopular" db:"is_popular"`
	IsPromoted bool      `json:"isPromoted" db:"is_promoted"`
	Priority   *int      `json:"priority" db:"priority"`
	VendorID   int       `json:"vendorId" db:"vendor_id"`
	ImageURL   string    `json:"imageUrl" db:"image_url"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate validates the event data
func (e *Event) Validate() error {
	if err := validateTitle(e.Title); err != nil {
		return err
	}

	if err := validateDates(e.StartDate, e.EndDate); err != nil {
		return err
	}

	if err := validateCity(e.City); err != nil {
		return err
	}

	if err := validateStatus(e.Status); err != nil {
		return err
	}

	if err := validateAgeRange(e.AgeFrom, e.AgeTo); err != nil {
		return err
	}

	if err := validateTickets(e.Tickets); err != nil {
		return err
	}

	if err := validateImageURL(e.ImageURL); err != nil {
		return err
	}

	return nil
}

// validateTitle validates an event title
func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}

	if len(title) > 255 {
		return errors.New("title must be less than 255 characters")
	}

	return nil
}

// validateDates validates event start and end dates
func validateDates(startDate, endDate time.Time) error {
	if startDate.IsZero() {
		return errors.New("start date is required")
	}

	if endDate.IsZero() {
		return errors.New("end date is required")
	}

	if startDate.After(endDate) {
		return errors.New("start date must be before end date")
	}

	return nil
}

func validateCity(city string) error {
	if strings.TrimSpace(city) == "" {
		return errors.New("city is required")
	}
	if len(city) > 100 {
		return errors.New("city must be less than 100 characters")
	}
	return nil
}

// validateStatus validates an event status
func validateStatus(status EventStatus) error {
	switch status {
	case StatusDraft, StatusModeration, StatusActive, StatusRejected, StatusArchived:
		return nil
	default:
		return errors.New("invalid event status")
	}
}

func validateAgeRange(from, to *int) error {
	if from != nil && *from < 0 {
		return errors.New("age from cannot be negative")
	}
	if to != nil && *to < 0 {
		return errors.New("age to cannot be negative")
	}
	if from != nil && to != nil && *from > *to {
		return errors.New("age from must not exceed age to")
	}
	return nil
}

// validateTickets only rejects payloads that are not a tier list at all.
func validateTickets(tickets *string) error {
	if tickets == nil || strings.TrimSpace(*tickets) == "" {
		return nil
	}
	if _, err := ParseTicketTiers(tickets); err != nil {
		return errors.New("tickets must be a JSON list of ticket tiers")
	}
	return nil
}

// validateImageURL validates an event image URL
func validateImageURL(imageURL string) error {
	if imageURL == "" {
		return nil
	}

	if len(imageURL) > 500 {
		return errors.New("image URL must be less than 500 characters")
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return errors.New("invalid image URL format")
	}

	// Allow relative paths or HTTP/HTTPS URLs
	if parsedURL.Scheme != "" && parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("image URL must use HTTP or HTTPS protocol, or be a relative path")
	}

	return nil
}

// IsActive returns true if the event is visible in listings
func (e *Event) IsActive() bool {
	return e.Status == StatusActive
}

// IsUpcoming returns true if the event has not ended at the given time
func (e *Event) IsUpcoming(now time.Time) bool {
	return !e.EndDate.Before(now)
}

// TicketTiers parses the serialized tier list. Malformed data yields nil.
func (e *Event) TicketTiers() []TicketTier {
	tiers, err := ParseTicketTiers(e.Tickets)
	if err != nil {
		return nil
	}
	return tiers
}
