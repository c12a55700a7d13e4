/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend
  5. WithActor:  Resolves the acting user for everything except /auth

ROUTE GROUPS:
  /api/auth/*     Registration and credential check (no actor)
  /api/account    Acting user's own record
  /api/users/*    Account administration (staff)
  /api/credit     Credit top-ups (staff)
  /api/items/*    Catalog (reads for everyone, writes staff)
  /api/orders/*   Placement, advancement, cancellation

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Auth routes (no resolved actor)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Everything else runs as an explicit actor.
		r.Group(func(r chi.Router) {
			r.Use(h.WithActor)

			r.Route("/account", func(r chi.Router) {
				r.Get("/", h.GetAccount)
				r.Put("/", h.UpdateAccount)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(RequireStaff)
				r.Get("/", h.ListUsers)
				r.Delete("/{id}", h.DeleteUser)
			})

			r.With(RequireStaff).Post("/credit", h.AddCredit)

			r.Route("/items", func(r chi.Router) {
				r.Get("/", h.ListItems)
				r.Get("/{id}", h.GetItem)
				r.With(RequireStaff).Post("/", h.CreateItem)
				r.With(RequireStaff).Put("/{id}", h.UpdateItem)
				r.With(RequireStaff).Delete("/{id}", h.DeleteItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(RequireStudent).Post("/", h.PlaceOrder)
				r.Get("/", h.ListOrders)
				r.Get("/{id}", h.GetOrder)
				r.With(RequireStaff).Post("/{id}/advance", h.AdvanceOrder)
				r.Post("/{id}/cancel", h.CancelOrder)
			})
		})
	})

	return r
}
