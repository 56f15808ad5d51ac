// Package main provides the entrypoint for the schedule API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/api"
	"github.com/schedulehub/p2p/internal/api/middleware"
	"github.com/schedulehub/p2p/internal/app"
	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "schedulehub-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting schedule API")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	carriers, err := config.LoadCarriers(cfg.CarriersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load carrier configuration")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	pipeline, err := app.New(ctx, app.Options{
		Config:   cfg,
		Carriers: carriers,
		Logger:   log,
		Metrics:  tp.Carriers,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build search pipeline")
		os.Exit(1)
	}
	defer pipeline.Close()

	if len(cfg.APIKeys) == 0 {
		log.Warn().Msg("no API keys configured - schedule endpoints are open")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		Search:       pipeline.Search,
		Cache:        pipeline.Cache,
		CacheBackend: pipeline.CacheBackend,
		Registry:     pipeline.Registry,
		Pool:         pipeline.Pool,
		APIKeys:      cfg.APIKeys,
		SearchRateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.SearchRateLimit,
			WindowLength: time.Minute,
		},
		RequireTLS: cfg.RequireTLS,
	})

	// A search may run every orchestrator attempt back to back.
	searchBudget := time.Duration(cfg.Orchestrator.MaxAttempts)*
		(cfg.Orchestrator.Timeout+cfg.Orchestrator.RetryDelay) +
		time.Duration(cfg.Orchestrator.MaxAttempts*(cfg.Orchestrator.MaxAttempts-1)/2)*cfg.Orchestrator.TimeoutIncrement

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: searchBudget + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Dur("write_timeout", server.WriteTimeout).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
