/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Throttle:   Caps concurrent in-flight requests
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/bookings/*       Booking creation, listing, status, history
  /api/credits/*        Credit issuance and patient listings

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

// throttleLimit caps concurrent in-flight requests; excess requests queue
// and eventually get 503 instead of piling onto the database.
const throttleLimit = 100

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(throttleLimit))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/", h.ListUserBookings)
			r.Get("/{bookingID}", h.GetBooking)
			r.Post("/{bookingID}/status", h.SetBookingStatus)
			r.Get("/{bookingID}/history", h.GetBookingHistory)
		})

		// Credit routes
		r.Route("/credits", func(r chi.Router) {
			r.Post("/", h.CreateCredit)
			r.Get("/{patientID}", h.ListPatientCredits)
		})
	})

	return r
}
