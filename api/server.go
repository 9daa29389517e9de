/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    zerolog request logger (logging.Middleware)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /, /health            Service info and store connectivity
  /api/hr/*             Directory and sync endpoints
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/warp/payroll-sync/config"
	"github.com/warp/payroll-sync/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	Logger      zerolog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = config.DefaultCORSOrigins()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", h.ServiceInfo)
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/hr", func(r chi.Router) {
			r.Get("/employees", h.ListEmployees)
			r.Get("/employees/{id}", h.GetEmployee)
			r.Get("/org-structure", h.GetOrgStructure)
			r.Get("/departments", h.ListDepartments)
			r.Get("/positions", h.ListPositions)
			r.Get("/dividends", h.ListDividends)

			r.Post("/sync/check", h.CheckSync)
			r.Post("/sync/execute", h.ExecuteSync)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
