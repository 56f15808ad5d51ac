// Package database provides PostgreSQL connection management for the
// shared schedule cache.
package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultApplicationName is reported to the server in pg_stat_activity.
const DefaultApplicationName = "schedulehub"

// Config holds database connection configuration.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// HealthCheckPeriod is how often idle connections are checked.
	HealthCheckPeriod time.Duration

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration

	// ApplicationName tags server-side sessions.
	ApplicationName string
}

// ConfigFromEnv creates a Config from DB_* environment variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	maxOpen, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", "2"))
	lifetime, _ := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", "30m"))
	healthCheck, _ := time.ParseDuration(getEnvOrDefault("DB_HEALTH_CHECK_PERIOD", "1m"))
	connectTimeout, _ := time.ParseDuration(getEnvOrDefault("DB_CONNECT_TIMEOUT", "5s"))

	return Config{
		Host:              getEnvOrDefault("DB_HOST", "localhost"),
		Port:              port,
		User:              getEnvOrDefault("DB_USER", "schedulehub"),
		Password:          getEnvOrDefault("DB_PASSWORD", "localdev"),
		Database:          getEnvOrDefault("DB_NAME", "schedulehub"),
		SSLMode:           getEnvOrDefault("DB_SSL_MODE", "disable"),
		MaxOpenConns:      maxOpen,
		MaxIdleConns:      maxIdle,
		ConnMaxLifetime:   lifetime,
		HealthCheckPeriod: healthCheck,
		ConnectTimeout:    connectTimeout,
		ApplicationName:   getEnvOrDefault("DB_APPLICATION_NAME", DefaultApplicationName),
	}
}

// ConnectionString returns the PostgreSQL connection URL. Credentials are
// escaped so passwords may contain reserved characters.
func (c Config) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect creates a new connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // MaxOpenConns is bounded by config validation
	poolConfig.MinConns = int32(cfg.MaxIdleConns) //nolint:gosec // MaxIdleConns is bounded by config validation
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
