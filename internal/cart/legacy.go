package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"kiddeo/internal/models"
)

// LegacyRecord is the per-event ticket cart format used before bundles
// became regular cart items.
type LegacyRecord struct {
	EventID    legacyID     `json:"eventId"`
	EventTitle string       `json:"eventTitle"`
	Image      string       `json:"image"`
	Vendor     string       `json:"vendor"`
	Date       string       `json:"date"`
	Time       string       `json:"time"`
	Location   string       `json:"location"`
	Tickets    []TicketLine `json:"tickets"`
	Total      models.Price `json:"total"`
}

type LegacyCart []LegacyRecord

// legacyID accepts both numeric and string event ids.
type legacyID string

func (id *legacyID) UnmarshalJSON(data []byte) error {
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
		*id = legacyID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid event id %s", data)
	}
	*id = legacyID(n.String())
	return nil
}

// ParseLegacy decodes a legacy cart stored either as a list of records
// or as an object keyed by event id.
func ParseLegacy(data []byte) (LegacyCart, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var records LegacyCart
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse legacy cart: %w", err)
		}
		return records, nil
	}

	var byEvent map[string]LegacyRecord
	if err := json.Unmarshal(data, &byEvent); err != nil {
		return nil, fmt.Errorf("failed to parse legacy cart: %w", err)
	}
	keys := make([]string, 0, len(byEvent))
	for k := range byEvent {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make(LegacyCart, 0, len(keys))
	for _, k := range keys {
		rec := byEvent[k]
		if rec.EventID == "" {
			rec.EventID = legacyID(k)
		}
		records = append(records, rec)
	}
	return records, nil
}

// MigrateLegacy turns each legacy record into one ticket bundle item.
// Records without an event id or without tickets are dropped.
func MigrateLegacy(legacy LegacyCart) []Item {
	items := make([]Item, 0, len(legacy))
	for _, rec := range legacy {
		eventID := string(rec.EventID)
		if eventID == "" || len(rec.Tickets) == 0 {
			continue
		}
		price := float64(rec.Total)
		if price == 0 {
			price = bundlePrice(rec.Tickets)
		}
		title := rec.EventTitle
		if title == "" {
			title = eventID
		}
		items = append(items, Item{
			ID:       BundleID(eventID),
			Type:     ItemTicket,
			Price:    price,
			Quantity: 1,
			Title:    title,
			Image:    rec.Image,
			Vendor:   rec.Vendor,
			Date:     rec.Date,
			Time:     rec.Time,
			Location: rec.Location,
			EventID:  eventID,
			Metadata: Metadata{}.WithTickets(rec.Tickets),
		})
	}
	return items
}
