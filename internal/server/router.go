// Package server assembles the HTTP API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kiddeo/internal/cart"
	"kiddeo/internal/catalog"
	"kiddeo/internal/filter"
	"kiddeo/internal/handlers"
	"kiddeo/internal/logger"
	"kiddeo/internal/middleware"
)

// Deps is everything the router needs.
type Deps struct {
	Engine      *filter.Engine
	Catalog     *catalog.Catalog
	Carts       *cart.Registry
	Sessions    *middleware.SessionMiddleware
	RateLimiter *middleware.RateLimiter
	CORS        middleware.CORSConfig
	Log         logger.Logger
	// DevSessions mounts POST and DELETE /api/session for signing in
	// without an auth layer.
	DevSessions bool
	// Health reports backend readiness; nil means always healthy.
	Health func(r *http.Request) error
}

// NewRouter builds the API router.
func NewRouter(d Deps) chi.Router {
	eventsHandler := handlers.NewEventsHandler(d.Engine, d.Catalog, d.Log)
	cartHandler := handlers.NewCartHandler(d.Carts, d.Log)
	sessionHandler := handlers.NewSessionHandler(d.Sessions, d.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(d.Log))
	r.Use(middleware.ErrorHandlingMiddleware(d.Log))
	r.Use(middleware.CORSMiddleware(d.CORS))
	r.Use(middleware.SecurityHeadersMiddleware)

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			if err := d.Health(r); err != nil {
				middleware.WriteError(w, r, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", eventsHandler.Categories)
		r.Get("/cities", eventsHandler.Cities)

		r.Group(func(r chi.Router) {
			r.Use(d.Sessions.Identify)

			r.Get("/session", sessionHandler.Get)
			if d.DevSessions {
				r.Post("/session", sessionHandler.SignIn)
				r.Delete("/session", sessionHandler.SignOut)
			}

			r.Route("/{city}", func(r chi.Router) {
				r.Get("/events", eventsHandler.List)
				r.Get("/events/facets", eventsHandler.Facets)

				r.Route("/cart", func(r chi.Router) {
					r.Use(middleware.RateLimit(d.RateLimiter))
					r.Get("/", cartHandler.Get)
					r.Post("/items", cartHandler.AddItem)
					r.Patch("/items/{id}", cartHandler.UpdateItem)
					r.Delete("/items/{id}", cartHandler.RemoveItem)
					r.Patch("/tickets/{eventID}/{ticketID}", cartHandler.UpdateTicket)
					r.Post("/clear", cartHandler.Clear)
					r.Post("/toggle", cartHandler.Toggle)
					r.Post("/reload", cartHandler.Reload)
				})
			})
		})
	})

	return r
}
