/**
 * @description
 * This file sets up the main router for the service using the chi router.
 * It wires standard middleware (logging, panic recovery, timeouts, CORS),
 * the public registration and admin auth routes, the JWT-protected review
 * routes, the static dossier route, and a health check.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The HTTP router.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the chi router with all application routes.
func NewRouter(h *Handlers, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.Post("/signup", h.SignupHandler)
			r.Post("/login", h.LoginHandler)
			r.With(AuthMiddleware(jwtSecret)).Get("/verify", h.VerifyHandler)
		})

		r.Route("/customers", func(r chi.Router) {
			// Registration and the read endpoints are public; the
			// registration page shows the live count without a session.
			r.Post("/", h.CreateCustomerHandler)
			r.Get("/", h.ListCustomersHandler)
			r.Get("/{id}", h.GetCustomerHandler)

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(jwtSecret))
				r.Delete("/{id}", h.DeleteCustomerHandler)
				r.Patch("/{id}/approve", h.ApproveCustomerHandler)
				r.Patch("/{id}/reject", h.RejectCustomerHandler)
				r.Post("/{id}/pdf", h.RegeneratePDFHandler)
			})
		})
	})

	r.Get("/pdfs/{file}", h.ServePDFHandler)

	return r
}
