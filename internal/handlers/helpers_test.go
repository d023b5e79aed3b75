package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"kiddeo/internal/cart"
	"kiddeo/internal/catalog"
	"kiddeo/internal/filter"
	"kiddeo/internal/handlers"
	"kiddeo/internal/logger"
	"kiddeo/internal/middleware"
	"kiddeo/internal/models"
	"kiddeo/internal/repositories"
)

var testNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, events ...*models.Event) *filter.Engine {
	t.Helper()
	cfg := filter.DefaultConfig()
	cfg.Now = func() time.Time { return testNow }
	engine, err := filter.NewEngine(repositories.NewMemoryEventRepository(events...), nil, catalog.Default(), cfg, logger.NewNop())
	require.NoError(t, err)
	return engine
}

func newTestRegistry(t *testing.T) *cart.Registry {
	t.Helper()
	reg := cart.NewRegistry(
		repositories.NewMemoryCartRepository(),
		repositories.NewMemoryCartStore(),
		cart.Config{PersistDelay: time.Hour, AnimationReset: time.Hour},
		logger.NewNop(),
	)
	t.Cleanup(func() { reg.Close(context.Background()) })
	return reg
}

// newTestRouter mounts the handlers the way the server does, with a fixed
// identity instead of session cookies.
func newTestRouter(t *testing.T, ident *middleware.Identity, events ...*models.Event) http.Handler {
	t.Helper()
	eventsHandler := handlers.NewEventsHandler(newTestEngine(t, events...), catalog.Default(), logger.NewNop())
	cartHandler := handlers.NewCartHandler(newTestRegistry(t), logger.NewNop())

	r := chi.NewRouter()
	if ident != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), *ident)))
			})
		})
	}
	r.Get("/api/categories", eventsHandler.Categories)
	r.Get("/api/cities", eventsHandler.Cities)
	r.Get("/api/{city}/events", eventsHandler.List)
	r.Get("/api/{city}/events/facets", eventsHandler.Facets)
	r.Route("/api/{city}/cart", func(r chi.Router) {
		r.Get("/", cartHandler.Get)
		r.Post("/items", cartHandler.AddItem)
		r.Patch("/items/{id}", cartHandler.UpdateItem)
		r.Delete("/items/{id}", cartHandler.RemoveItem)
		r.Patch("/tickets/{eventID}/{ticketID}", cartHandler.UpdateTicket)
		r.Post("/clear", cartHandler.Clear)
		r.Post("/toggle", cartHandler.Toggle)
		r.Post("/reload", cartHandler.Reload)
	})
	return r
}

func newEvent(title, city string, opts ...func(*models.Event)) *models.Event {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e := &models.Event{
		Title:     title,
		City:      city,
		Category:  "Концерты",
		Status:    models.StatusActive,
		StartDate: start,
		EndDate:   start.Add(2 * time.Hour),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
