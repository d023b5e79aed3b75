package cart

import (
	"encoding/json"
	"math"

	"kiddeo/internal/models"
)

type ItemType string

const (
	ItemTicket  ItemType = "ticket"
	ItemProduct ItemType = "product"
)

// Item is one cart line. A ticket bundle keeps its tiers under
// Metadata["tickets"] and its Price is the sum of the tier subtotals.
type Item struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Price    float64  `json:"price"`
	Quantity int      `json:"quantity"`
	Title    string   `json:"title"`
	Image    string   `json:"image,omitempty"`
	Vendor   string   `json:"vendor,omitempty"`
	Date     string   `json:"date,omitempty"`
	Time     string   `json:"time,omitempty"`
	Location string   `json:"location,omitempty"`
	EventID  string   `json:"eventId,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Metadata is free-form per-item data.
type Metadata map[string]any

// TicketLine is one tier of a ticket bundle.
type TicketLine struct {
	TicketID models.TierID `json:"ticketId"`
	Name     string        `json:"name,omitempty"`
	Price    models.Price  `json:"price"`
	Quantity int           `json:"quantity"`
}

// BundleID is the cart line id of an event's ticket bundle.
func BundleID(eventID string) string {
	return "ticket-" + eventID
}

// Tickets decodes the tier list. Missing or malformed data yields nil.
func (m Metadata) Tickets() []TicketLine {
	raw, ok := m["tickets"]
	if !ok || raw == nil {
		return nil
	}
	if lines, ok := raw.([]TicketLine); ok {
		return append([]TicketLine(nil), lines...)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var lines []TicketLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil
	}
	return lines
}

// WithTickets returns a copy of m holding lines as the tier list.
func (m Metadata) WithTickets(lines []TicketLine) Metadata {
	out := m.clone()
	if out == nil {
		out = Metadata{}
	}
	out["tickets"] = append([]TicketLine(nil), lines...)
	return out
}

func (m Metadata) clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// bundlePrice is Σ tier price × quantity.
func bundlePrice(lines []TicketLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += float64(l.Price) * float64(l.Quantity)
	}
	return roundCents(sum)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
