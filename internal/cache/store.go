package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/schedulehub/p2p/internal/telemetry"
)

// StoreConfig holds configuration for the cache store.
type StoreConfig struct {
	// Backend is the key-value store (required).
	Backend Backend

	// Logger for background write outcomes.
	Logger zerolog.Logger

	// Metrics records hits and misses (optional).
	Metrics *telemetry.CarrierMetrics

	// WriteTimeout bounds each background write (default: 5 seconds).
	WriteTimeout time.Duration
}

// Store encodes values with msgpack and writes them in the background so a
// request never waits on the cache. A nil *Store behaves as an always-missing
// cache.
type Store struct {
	backend      Backend
	logger       zerolog.Logger
	metrics      *telemetry.CarrierMetrics
	writeTimeout time.Duration

	wg sync.WaitGroup
}

// NewStore creates a new cache store.
func NewStore(cfg StoreConfig) *Store {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	return &Store{
		backend:      cfg.Backend,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		writeTimeout: writeTimeout,
	}
}

// Get decodes the entry for key into dst and reports whether it was found.
func (s *Store) Get(ctx context.Context, ns Namespace, key string, dst any) (bool, error) {
	if s == nil {
		return false, nil
	}

	data, found, err := s.backend.Get(ctx, ns, key)
	if err != nil {
		return false, err
	}
	if !found {
		s.metrics.RecordCacheMiss(string(ns))
		return false, nil
	}

	if err := msgpack.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decoding cache entry: %w", err)
	}
	s.metrics.RecordCacheHit(string(ns))
	return true, nil
}

// Set writes v unless a live entry exists, in which case it returns ErrConflict.
func (s *Store) Set(ctx context.Context, ns Namespace, key string, v any, ttl time.Duration) error {
	if s == nil {
		return nil
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	return s.backend.SetIfAbsent(ctx, ns, key, data, ttl)
}

// SetAsync encodes v immediately and writes it in the background. Losing a
// first-writer race is expected and only logged at debug level.
func (s *Store) SetAsync(ns Namespace, key string, v any, ttl time.Duration) {
	if s == nil {
		return
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		s.logger.Warn().Err(err).Str("namespace", string(ns)).Msg("encoding cache entry")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()

		err := s.backend.SetIfAbsent(ctx, ns, key, data, ttl)
		switch {
		case err == nil:
		case errors.Is(err, ErrConflict):
			s.logger.Debug().Str("namespace", string(ns)).Msg("cache entry already written")
		default:
			s.logger.Warn().Err(err).Str("namespace", string(ns)).Msg("cache write failed")
		}
	}()
}

// Wait blocks until every background write has finished.
func (s *Store) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.backend.Ping(ctx)
}

// Close waits for pending writes and closes the backend.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.wg.Wait()
	return s.backend.Close()
}
