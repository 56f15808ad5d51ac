// Package api provides the HTTP API of the schedule aggregator.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/api/handler"
	"github.com/schedulehub/p2p/internal/api/middleware"
	"github.com/schedulehub/p2p/internal/api/response"
	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Search answers GET /v1/schedules (required).
	Search handler.Searcher

	// Cache, Registry and Pool feed the ops endpoints (optional).
	Cache        *cache.Store
	CacheBackend string
	Registry     *resilience.Registry
	Pool         *resilience.Pool

	// APIKeys protects schedule and status endpoints. Empty disables
	// authentication.
	APIKeys middleware.APIKeys

	// SearchRateLimit overrides middleware.SearchRateLimit when non-zero.
	SearchRateLimit middleware.RateLimitConfig

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "schedulehub-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.AcceptJSON)
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.Method+" "+r.URL.Path)
	})

	ops := handler.OpsConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		CacheBackend: cfg.CacheBackend,
		Registry:     cfg.Registry,
		Pool:         cfg.Pool,
	}
	if cfg.Cache != nil {
		ops.Cache = cfg.Cache
	}
	opsHandler := handler.NewOpsHandler(ops)
	scheduleHandler := handler.NewScheduleHandler(cfg.Search, cfg.Logger)

	authenticate := middleware.Authenticate(cfg.APIKeys)

	searchLimit := cfg.SearchRateLimit
	if searchLimit.RequestLimit == 0 {
		searchLimit = middleware.SearchRateLimit
	}

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authenticate).Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.With(middleware.RateLimitByClient(searchLimit)).Get("/schedules", scheduleHandler.Search)
			r.With(middleware.RateLimitByClient(middleware.StandardRateLimit)).Get("/carriers", scheduleHandler.Carriers)
		})
	})

	return r
}
