// Package config loads service settings from the environment and carrier
// credentials from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schedulehub/p2p/internal/database"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Cache backends.
const (
	CacheBackendNone     = "none"
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// ErrInvalid wraps every malformed setting.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the settings shared by the binaries.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// APIKeys maps API keys to client names. Empty disables authentication.
	APIKeys map[string]string

	// SearchRateLimit is the per-client search allowance per minute.
	SearchRateLimit int

	// CarriersFile is the path of the carrier YAML (optional).
	CarriersFile string

	Telemetry    Telemetry
	Cache        Cache
	Database     database.Config
	Orchestrator Orchestrator
	Worker       Worker
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

// Cache selects and tunes the cache backend.
type Cache struct {
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// ResponseTTL bounds raw carrier responses, ProductTTL assembled products.
	ResponseTTL time.Duration
	ProductTTL  time.Duration
}

// Orchestrator tunes carrier task retries.
type Orchestrator struct {
	Timeout          time.Duration
	TimeoutIncrement time.Duration
	MaxAttempts      int
	RetryDelay       time.Duration
}

// Worker configures the cache warmer.
type Worker struct {
	ProjectID      string
	SubscriptionID string

	// Concurrency bounds lanes searched at once.
	Concurrency int

	// Lanes are the trade lanes kept warm.
	Lanes []Lane

	// LaneRange is the search range in days used when warming.
	LaneRange int

	// Interval drives warming from a ticker when no Pub/Sub project is set.
	Interval time.Duration
}

// Lane is one origin/destination pair.
type Lane struct {
	Origin      string
	Destination string
}

func (l Lane) String() string { return l.Origin + "-" + l.Destination }

// DefaultLanes are the Asia-Europe and transpacific lanes warmed when
// WARM_LANES is unset.
const DefaultLanes = "CNSHA-NLRTM,CNSHA-DEHAM,HKHKG-DEHAM,SGSIN-NLRTM,CNNGB-USLAX,KRPUS-USLGB"

// FromEnv reads the configuration. Every malformed variable is reported.
func FromEnv() (Config, error) {
	r := &reader{}

	cfg := Config{
		Port:            r.str("APP_PORT", "8080"),
		Environment:     r.str("APP_ENV", "development"),
		LogLevel:        r.str("LOG_LEVEL", "info"),
		RequireTLS:      r.boolean("REQUIRE_TLS", false),
		SearchRateLimit: r.integer("SEARCH_RATE_LIMIT", 30),
		CarriersFile:    r.str("CARRIERS_CONFIG", ""),
		Telemetry: Telemetry{
			Enabled:      r.boolean("OTEL_ENABLED", false),
			OTLPEndpoint: r.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:     r.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio:  r.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
		Cache: Cache{
			Backend:       strings.ToLower(r.str("CACHE_BACKEND", CacheBackendMemory)),
			RedisAddr:     r.str("REDIS_ADDR", "localhost:6379"),
			RedisPassword: r.str("REDIS_PASSWORD", ""),
			RedisDB:       r.integer("REDIS_DB", 0),
			RedisPrefix:   r.str("REDIS_PREFIX", "p2p:"),
			ResponseTTL:   r.duration("CACHE_TTL_RESPONSE", 30*time.Minute),
			ProductTTL:    r.duration("CACHE_TTL_PRODUCT", 15*time.Minute),
		},
		Database: database.ConfigFromEnv(),
		Orchestrator: Orchestrator{
			Timeout:          r.duration("CARRIER_TIMEOUT", 30*time.Second),
			TimeoutIncrement: r.duration("CARRIER_TIMEOUT_INCREMENT", 10*time.Second),
			MaxAttempts:      r.integer("CARRIER_MAX_ATTEMPTS", 3),
			RetryDelay:       r.duration("CARRIER_RETRY_DELAY", 500*time.Millisecond),
		},
		Worker: Worker{
			ProjectID:      r.str("PUBSUB_PROJECT_ID", ""),
			SubscriptionID: r.str("PUBSUB_SUBSCRIPTION", "schedule-jobs"),
			Concurrency:    r.integer("WARM_CONCURRENCY", 3),
			LaneRange:      r.integer("WARM_SEARCH_RANGE", schedule.DefaultSearchRange),
			Interval:       r.duration("WARM_INTERVAL", 10*time.Minute),
		},
	}

	keys, err := ParseAPIKeys(r.str("API_KEYS", ""))
	if err != nil {
		r.errs = append(r.errs, err)
	}
	cfg.APIKeys = keys

	lanes, err := ParseLanes(r.str("WARM_LANES", DefaultLanes))
	if err != nil {
		r.errs = append(r.errs, err)
	}
	cfg.Worker.Lanes = lanes

	if err := cfg.validate(); err != nil {
		r.errs = append(r.errs, err)
	}

	if len(r.errs) > 0 {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(r.errs...))
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	switch c.Cache.Backend {
	case CacheBackendNone, CacheBackendMemory, CacheBackendRedis, CacheBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND: unknown backend %q", c.Cache.Backend))
	}
	if c.Orchestrator.MaxAttempts < 1 {
		errs = append(errs, errors.New("CARRIER_MAX_ATTEMPTS: must be at least 1"))
	}
	if c.Orchestrator.Timeout <= 0 {
		errs = append(errs, errors.New("CARRIER_TIMEOUT: must be positive"))
	}
	if c.SearchRateLimit < 1 {
		errs = append(errs, errors.New("SEARCH_RATE_LIMIT: must be at least 1"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("WARM_CONCURRENCY: must be at least 1"))
	}
	if c.Worker.Interval <= 0 {
		errs = append(errs, errors.New("WARM_INTERVAL: must be positive"))
	}
	if c.Worker.LaneRange < 1 || c.Worker.LaneRange > schedule.MaxSearchRange {
		errs = append(errs, fmt.Errorf("WARM_SEARCH_RANGE: must be between 1 and %d", schedule.MaxSearchRange))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// ParseAPIKeys parses "client:key" pairs separated by commas into a
// key to client map.
func ParseAPIKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for pair := range strings.SplitSeq(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		client, key, ok := strings.Cut(pair, ":")
		client, key = strings.TrimSpace(client), strings.TrimSpace(key)
		if !ok || client == "" || key == "" {
			return nil, errors.New("API_KEYS: entries must look like client:key")
		}
		if _, dup := keys[key]; dup {
			return nil, fmt.Errorf("API_KEYS: key for %q is already assigned", client)
		}
		keys[key] = client
	}
	return keys, nil
}

// ParseLanes parses "ORIGIN-DESTINATION" pairs separated by commas.
func ParseLanes(raw string) ([]Lane, error) {
	var lanes []Lane
	for pair := range strings.SplitSeq(raw, ",") {
		pair = strings.ToUpper(strings.TrimSpace(pair))
		if pair == "" {
			continue
		}
		from, to, ok := strings.Cut(pair, "-")
		if !ok || !schedule.ValidLocationCode(from) || !schedule.ValidLocationCode(to) {
			return nil, fmt.Errorf("WARM_LANES: invalid lane %q", pair)
		}
		lanes = append(lanes, Lane{Origin: from, Destination: to})
	}
	return lanes, nil
}

// reader collects parse failures so they can be reported together.
type reader struct {
	errs []error
}

func (r *reader) str(key, defaultValue string) string {
	return getEnvOrDefault(key, defaultValue)
}

func (r *reader) integer(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func (r *reader) float(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func (r *reader) boolean(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func (r *reader) duration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
