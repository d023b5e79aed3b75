package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Price is a monetary amount that decodes from a JSON number or a numeric string.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*p = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q", s)
		}
		*p = Price(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = Price(f)
	return nil
}

// TierID is a ticket tier identifier stored either as a number or a string.
type TierID string

func (id *TierID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TierID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = TierID(n.String())
	return nil
}

// TicketTier is one entry of an event's serialized tickets list.
type TicketTier struct {
	ID        TierID     `json:"id"`
	Name      string     `json:"name"`
	Price     Price      `json:"price"`
	Quantity  *int       `json:"quantity,omitempty"`
	Sold      int        `json:"sold,omitempty"`
	SaleStart *time.Time `json:"saleStart,omitempty"`
	SaleEnd   *time.Time `json:"saleEnd,omitempty"`
	IsActive  *bool      `json:"isActive,omitempty"`
}

// ParseTicketTiers decodes a serialized tier list. A nil or blank payload is
// an empty list; anything that is not a JSON array of tiers is an error.
func ParseTicketTiers(raw *string) ([]TicketTier, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" || s == "null" {
		return nil, nil
	}
	var tiers []TicketTier
	if err := json.Unmarshal([]byte(s), &tiers); err != nil {
		return nil, fmt.Errorf("failed to parse tickets: %w", err)
	}
	return tiers, nil
}

// Validate validates a ticket tier
func (tt *TicketTier) Validate() error {
	if strings.TrimSpace(tt.Name) == "" {
		return errors.New("ticket tier name is required")
	}
	if tt.Price < 0 {
		return errors.New("ticket price cannot be negative")
	}
	if tt.Quantity != nil && *tt.Quantity < 0 {
		return errors.New("ticket quantity cannot be negative")
	}
	if tt.SaleStart != nil && tt.SaleEnd != nil && tt.SaleStart.After(*tt.SaleEnd) {
		return errors.New("sale start date must be before sale end date")
	}
	return nil
}

// IsSoldOut returns true if a limited tier has no tickets left
func (tt *TicketTier) IsSoldOut() bool {
	return tt.Quantity != nil && tt.Sold >= *tt.Quantity
}

// IsOnSale reports whether now falls inside the sale window. Open ends are unbounded.
func (tt *TicketTier) IsOnSale(now time.Time) bool {
	if tt.SaleStart != nil && now.Before(*tt.SaleStart) {
		return false
	}
	if tt.SaleEnd != nil && now.After(*tt.SaleEnd) {
		return false
	}
	return true
}

// IsAvailable returns true if the tier can be bought at the given time
func (tt *TicketTier) IsAvailable(now time.Time) bool {
	if tt.IsActive != nil && !*tt.IsActive {
		return false
	}
	return !tt.IsSoldOut() && tt.IsOnSale(now)
}
