package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with the global middleware stack and
// every API route mounted.
func NewRouter(h *EventHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(logger))
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Get("/", h.Dashboard)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
		})
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateEvent)
			r.Get("/upcoming", h.ListUpcomingEvents)
			r.Get("/{id}", h.GetEvent)
			r.Get("/{id}/stats", h.GetEventStats)
			r.Post("/{id}/registrations", h.Register)
			r.Delete("/{id}/registrations/{userID}", h.Cancel)
		})
		r.Get("/stats", h.SystemStats)
		r.Get("/audit", h.AuditLog)
	})

	return r
}
