// Package app wires configuration into the search pipeline shared by the
// API server, the cache warmer and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/assembler"
	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/database"
	"github.com/schedulehub/p2p/internal/orchestrator"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/search"
	"github.com/schedulehub/p2p/internal/telemetry"
)

// Options configure New.
type Options struct {
	Config   config.Config
	Carriers config.Carriers
	Logger   zerolog.Logger

	// Metrics records carrier and cache outcomes (optional).
	Metrics *telemetry.CarrierMetrics

	// Backend replaces the configured cache backend when set.
	Backend cache.Backend
}

// App holds the assembled pipeline and the resources it owns.
type App struct {
	Search       *search.Service
	Cache        *cache.Store
	CacheBackend string
	Carriers     *carrier.Set
	Registry     *resilience.Registry
	Pool         *resilience.Pool

	backend cache.Backend
	db      *pgxpool.Pool
	logger  zerolog.Logger
}

// New builds the cache, carriers and search service.
func New(ctx context.Context, opts Options) (*App, error) {
	a := &App{
		Registry: resilience.NewRegistry(),
		logger:   opts.Logger,
	}

	poolCfg := resilience.DefaultPoolConfig()
	poolCfg.Logger = opts.Logger
	poolCfg.Metrics = opts.Metrics
	a.Pool = resilience.NewPool(poolCfg)

	backend := opts.Backend
	a.CacheBackend = opts.Config.Cache.Backend
	if backend == nil {
		var err error
		backend, err = a.openBackend(ctx, opts.Config)
		if err != nil {
			return nil, err
		}
	}
	a.backend = backend
	if backend != nil {
		a.Cache = cache.NewStore(cache.StoreConfig{
			Backend: backend,
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		})
	}

	carriers, err := BuildCarriers(opts.Carriers, CarrierDeps{
		Cache:    a.Cache,
		Pool:     a.Pool,
		Registry: a.Registry,
		Metrics:  opts.Metrics,
		Logger:   opts.Logger,
		CacheTTL: opts.Config.Cache.ResponseTTL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building carriers: %w", err)
	}
	a.Carriers = carriers

	oc := opts.Config.Orchestrator
	a.Search = search.NewService(search.Config{
		Carriers: carriers,
		Orchestrator: orchestrator.New(orchestrator.Config{
			Timeout:          oc.Timeout,
			TimeoutIncrement: oc.TimeoutIncrement,
			MaxAttempts:      oc.MaxAttempts,
			RetryDelay:       oc.RetryDelay,
			Logger:           opts.Logger,
			Metrics:          opts.Metrics,
			Registry:         a.Registry,
		}),
		Assembler: assembler.New(assembler.Config{
			Cache:  a.Cache,
			TTL:    opts.Config.Cache.ProductTTL,
			Logger: opts.Logger,
		}),
		Cache:  a.Cache,
		Logger: opts.Logger,
	})

	opts.Logger.Info().
		Str("cache", a.CacheBackend).
		Int("carriers", carriers.Len()).
		Msg("search pipeline ready")

	return a, nil
}

// openBackend returns nil for the "none" backend.
func (a *App) openBackend(ctx context.Context, cfg config.Config) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendNone:
		return nil, nil
	case config.CacheBackendRedis:
		return cache.NewRedisBackend(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		}), nil
	case config.CacheBackendPostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to cache database: %w", err)
		}
		backend := cache.NewPostgresBackend(pool, cache.DefaultRetryPolicy())
		if err := backend.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		a.db = pool
		return backend, nil
	default:
		return cache.NewMemoryBackend(), nil
	}
}

type pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Prune removes expired cache entries from backends that keep them around
// (memory and PostgreSQL). Redis expires keys itself and reports zero.
func (a *App) Prune(ctx context.Context) (int64, error) {
	p, ok := a.backend.(pruner)
	if !ok {
		return 0, nil
	}
	return p.Prune(ctx)
}

// Close flushes pending cache writes and releases connections.
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing cache")
	}
	if a.db != nil {
		a.db.Close()
	}
	a.Pool.CloseIdleConnections()
}
