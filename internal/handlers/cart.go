package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kiddeo/internal/cart"
	"kiddeo/internal/logger"
	"kiddeo/internal/middleware"
)

// CartHandler exposes a device's per-city cart.
type CartHandler struct {
	registry *cart.Registry
	log      logger.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(registry *cart.Registry, log logger.Logger) *CartHandler {
	return &CartHandler{registry: registry, log: log}
}

type updateItemRequest struct {
	Quantity *int          `json:"quantity"`
	Metadata cart.Metadata `json:"metadata"`
}

type updateTicketRequest struct {
	Quantity *int `json:"quantity"`
}

// manager resolves the cart for the request's identity and city. It writes
// the error response itself when it returns nil.
func (h *CartHandler) manager(w http.ResponseWriter, r *http.Request) *cart.Manager {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok || ident.DeviceID == "" {
		writeError(w, r, http.StatusUnauthorized, "Session required")
		return nil
	}
	return h.registry.Get(r.Context(), chi.URLParam(r, "city"), ident.DeviceID, ident.UserID)
}

// Get handles GET /api/{city}/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	m := h.manager(w, r)
	if m == nil {
		return
	}
	writeJSON(w, http.StatusOK, m.State())
}

// AddItem handles POST /api/{city}/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item cart.Item
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Type == "" {
		item.Type = cart.ItemProduct
	}

	switch {
	case item.ID == "":
		writeError(w, r, http.StatusBadRequest, "Item id is required")
		return
	case item.Quantity < 0:
		writeError(w, r, http.StatusBadRequest, "Quantity must be positive")
		return
	case item.Price < 0:
		writeError(w, r, http.StatusBadRequest, "Price cannot be negative")
		return
	case item.Type != cart.ItemTicket && item.Type != cart.ItemProduct:
		writeError(w, r, http.StatusBadRequest, "Unknown item type")
		return
	}

	m := h.manager(w, r)
	if m == nil {
		return
	}
	writeJSON(w, http.StatusOK, m.AddToCart(item))
}

// UpdateItem handles PATCH /api/{city}/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity == nil && req.Metadata == nil {
		writeError(w, r, http.StatusBadRequest, "Nothing to update")
		return
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		writeError(w, r, http.StatusBadRequest, "Quantity cannot be negative")
		return
	}

	m := h.manager(w, r)
	if m == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if !hasItem(m.State(), id) {
		writeError(w, r, http.StatusNotFound, "Item not found")
		return
	}

	state := m.State()
	if req.Metadata != nil {
		state = m.UpdateItemMetadata(id, req.Metadata)
	}
	if req.Quantity != nil {
		state = m.UpdateQuantity(id, *req.Quantity)
	}
	writeJSON(w, http.StatusOK, state)
}

// RemoveItem handles DELETE /api/{city}/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	m := h.manager(w, r)
	if m == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if !hasItem(m.State(), id) {
		writeError(w, r, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, m.RemoveFromCart(id))
}

// UpdateTicket handles PATCH /api/{city}/cart/tickets/{eventID}/{ticketID}
func (h *CartHandler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req updateTicketRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Quantity == nil {
		writeError(w, r, http.StatusBadRequest, "Quantity is required")
		return
	}
	if *req.Quantity < 0 {
		writeError(w, r, http.StatusBadRequest, "Quantity cannot be negative")
		return
	}

	m := h.manager(w, r)
	if m == nil {
		return
	}
	eventID := chi.URLParam(r, "eventID")
	if _, ok := m.State().TicketBundle(eventID); !ok {
		writeError(w, r, http.StatusNotFound, "No tickets for this event in cart")
		return
	}
	writeJSON(w, http.StatusOK, m.UpdateTicketQuantity(eventID, chi.URLParam(r, "ticketID"), *req.Quantity))
}

// Clear handles POST /api/{city}/cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	m := h.manager(w, r)
	if m == nil {
		return
	}
	writeJSON(w, http.StatusOK, m.ClearCart(r.Context()))
}

// Toggle handles POST /api/{city}/cart/toggle
func (h *CartHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	m := h.manager(w, r)
	if m == nil {
		return
	}
	writeJSON(w, http.StatusOK, m.ToggleCart())
}

// Reload handles POST /api/{city}/cart/reload
func (h *CartHandler) Reload(w http.ResponseWriter, r *http.Request) {
	m := h.manager(w, r)
	if m == nil {
		return
	}
	writeJSON(w, http.StatusOK, m.ForceLoadCart(r.Context()))
}

func hasItem(s cart.State, id string) bool {
	for _, it := range s.Items {
		if it.ID == id {
			return true
		}
	}
	return false
}
