// Package main provides the entrypoint for the schedule cache warmer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/app"
	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/telemetry"
	"github.com/schedulehub/p2p/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "schedulehub-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting schedule cache warmer")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	pipeline, err := app.New(ctx, app.Options{
		Config:   cfg,
		Carriers: carriers,
		Logger:   log,
		Metrics:  tp.Carriers,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build search pipeline")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	defer pipeline.Close()

	warm := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Lanes:       cfg.Worker.Lanes,
			Concurrency: cfg.Worker.Concurrency,
			SearchRange: cfg.Worker.LaneRange,
		},
		Searcher: pipeline.Search,
		Logger:   log,
	})

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Warm:   warm,
		Cache:  pipeline.Cache,
		Pruner: pipeline,
		Logger: log,
	})

	// Health endpoint for the container platform.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // best effort
			"status":  "healthy",
			"version": Version,
			"warming": warm.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Worker.ProjectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.ProjectID,
			SubscriptionName: cfg.Worker.SubscriptionID,
			Dispatcher:       dispatcher,
			Logger:           log,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create pubsub handler")
			os.Exit(1)
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Warn().Err(err).Msg("closing pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub receive stopped")
				cancel()
			}
		}()
	} else {
		log.Info().Dur("interval", cfg.Worker.Interval).Msg("no pubsub project, warming on a ticker")
		go func() {
			ticker := time.NewTicker(cfg.Worker.Interval)
			defer ticker.Stop()

			warm.Run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					warm.Run(ctx)
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
