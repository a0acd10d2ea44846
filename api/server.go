/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  unique ID per request for tracing
  2. Recoverer:  panic recovery (500 instead of crash)
  3. Logging:    one structured line per request
  4. CORS:       cross-origin requests for frontend clients
  5. Authenticator: JWT bearer tokens for everything under /api

ROUTE GROUPS:
  /api/leaves/*    leave requests, entitlements, adjustments, audit
  /api/schedule/*  shifts, shift types, schedule rules, assignments
  /api/employees/* minimal directory

SEE ALSO:
  - handlers.go, schedule.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hrline/leave-engine/logging"
)

// RouterOptions carries the boundary configuration.
type RouterOptions struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if h.Log != nil {
		r.Use(logging.Middleware(h.Log))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticator(opts.JWTSecret))

		r.Route("/leaves", func(r chi.Router) {
			r.Route("/requests", func(r chi.Router) {
				r.Post("/", h.SubmitRequest)
				r.Get("/", h.ListRequests)
				r.Post("/bulk", h.BulkProcess)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetRequest)
					r.Post("/approve", h.ApproveRequest)
					r.Post("/reject", h.RejectRequest)
					r.Post("/return", h.ReturnRequest)
					r.Post("/resubmit", h.ResubmitRequest)
					r.Post("/finalize", h.FinalizeRequest)
					r.Post("/override", h.OverrideRequest)
					r.Post("/cancel", h.CancelRequest)
				})
			})

			r.Get("/entitlements", h.ListEntitlements)
			r.Post("/adjustments", h.CreateAdjustment)

			r.Route("/audit-logs", func(r chi.Router) {
				r.Get("/", h.QueryAuditLogs)
				r.Get("/entitlement/{id}", h.EntitlementAuditLogs)
			})
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Route("/shifts", func(r chi.Router) {
				r.Get("/", h.ListShifts)
				r.Post("/", h.SaveShift)
				r.Get("/{id}", h.GetShift)
			})
			r.Route("/shift-types", func(r chi.Router) {
				r.Get("/", h.ListShiftTypes)
				r.Post("/", h.SaveShiftType)
			})
			r.Route("/rules", func(r chi.Router) {
				r.Get("/", h.ListRules)
				r.Post("/", h.SaveRule)
				r.Get("/{id}", h.GetRule)
			})
			r.Route("/assignments", func(r chi.Router) {
				r.Post("/", h.CreateAssignment)
				r.Get("/", h.ListAssignments)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetAssignment)
					r.Put("/", h.EditAssignment)
					r.Post("/approve", h.ApproveAssignment)
					r.Post("/cancel", h.CancelAssignment)
					r.Post("/renew", h.RenewAssignment)
					r.Get("/schedule", h.AssignmentSchedule)
				})
			})
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
		})
	})

	return r
}
