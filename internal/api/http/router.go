package http

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	cronhandler "github.com/poultryops/settlement-service/internal/handlers/cron"
	pointshandler "github.com/poultryops/settlement-service/internal/handlers/points"
	processinghandler "github.com/poultryops/settlement-service/internal/handlers/processing"
	settlementhandler "github.com/poultryops/settlement-service/internal/handlers/settlement"
	transferhandler "github.com/poultryops/settlement-service/internal/handlers/transfer"
	"github.com/poultryops/settlement-service/pkg/middleware"
	"github.com/poultryops/settlement-service/pkg/observability"
)

// Handlers groups the HTTP handlers wired into the router.
type Handlers struct {
	Settlement *settlementhandler.Handler
	Transfer   *transferhandler.Handler
	Points     *pointshandler.Handler
	Processing *processinghandler.Handler
	Cron       *cronhandler.Handler
}

// NewRouter configures the middleware stack and route tree.
func NewRouter(h Handlers, limiter *middleware.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(limiter.Middleware)
	r.Use(observability.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-Shop-ID"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		h.Settlement.Routes(r)
		h.Transfer.Routes(r)
		h.Points.Routes(r)
		h.Processing.Routes(r)
	})

	r.Route("/cron", func(r chi.Router) {
		r.Post("/variance-scan", h.Cron.VarianceScan)
		r.Post("/missed-settlements", h.Cron.MissedSettlements)
	})

	return r
}
