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
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/timesheets/*    Entry submission and status transitions
  /api/employees/*     Per-employee reads (entries, payroll)
  /api/accruals/*      Cost transition admin

SECURITY NOTE:
  Authorization happens per handler against the AccessControl interface;
  the default AllowAll trusts the X-Employee-ID header and is for
  development only.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Employee-ID", "X-Company-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Timesheet routes
		r.Route("/timesheets", func(r chi.Router) {
			r.Post("/", h.SubmitTimesheet)
			r.Get("/{id}", h.GetTimesheet)
			r.Post("/{id}/approve", h.ApproveTimesheet)
			r.Post("/{id}/reject", h.RejectTimesheet)
			r.Post("/{id}/reopen", h.ReopenTimesheet)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}/timesheets", h.ListTimesheets)
			r.Get("/{id}/payroll", h.GetPayrollSummary)
		})

		// Accrual admin routes
		r.Route("/accruals", func(r chi.Router) {
			r.Get("/pending", h.ListPendingAccruals)
			r.Post("/replay", h.ReplayAccruals)
		})
	})

	return r
}
