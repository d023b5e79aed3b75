package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kiddeo/internal/catalog"
	"kiddeo/internal/filter"
	"kiddeo/internal/logger"
	"kiddeo/internal/models"
)

// EventsHandler serves the listing search and the filter panel.
type EventsHandler struct {
	engine  *filter.Engine
	catalog *catalog.Catalog
	log     logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(engine *filter.Engine, cat *catalog.Catalog, log logger.Logger) *EventsHandler {
	return &EventsHandler{engine: engine, catalog: cat, log: log}
}

// List handles GET /api/{city}/events
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Search(r.Context(), city, criteria)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("event search failed", "city", city, "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to search events")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Facets handles GET /api/{city}/events/facets
func (h *EventsHandler) Facets(w http.ResponseWriter, r *http.Request) {
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stats := h.engine.ComputeFacetStats(r.Context(), chi.URLParam(r, "city"), criteria)
	writeJSON(w, http.StatusOK, stats)
}

// Categories handles GET /api/categories
func (h *EventsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Categories())
}

// Cities handles GET /api/cities
func (h *EventsHandler) Cities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Cities())
}
