package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the public and admin routes. adminToken guards
// POST /admin/newsletters; limiter may be nil when rate limiting is
// disabled.
func SetupRoutes(h *Handlers, adminToken string, limiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/subscriptions", h.Subscribe)
	})
	r.Get("/subscriptions/confirm", h.Confirm)

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireBearerToken(adminToken))
		r.Post("/newsletters", h.PublishNewsletter)
	})

	return r
}
