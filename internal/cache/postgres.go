package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createCacheTable = `
	CREATE TABLE IF NOT EXISTS cache_entries (
		namespace  TEXT        NOT NULL,
		key        TEXT        NOT NULL,
		value      BYTEA       NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (namespace, key)
	)
`

// PostgresBackend is a Backend for deployments that already run PostgreSQL.
type PostgresBackend struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewPostgresBackend creates a PostgreSQL backend on an existing pool.
func NewPostgresBackend(pool *pgxpool.Pool, retry RetryPolicy) *PostgresBackend {
	return &PostgresBackend{pool: pool, retry: retry}
}

// EnsureSchema creates the cache table if it does not exist.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, createCacheTable); err != nil {
		return fmt.Errorf("creating cache table: %w", err)
	}
	return nil
}

// Get implements Backend.
func (b *PostgresBackend) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	query := `
		SELECT value
		FROM cache_entries
		WHERE namespace = $1 AND key = $2 AND expires_at > now()
	`

	var (
		value []byte
		found bool
	)

	err := b.retry.do(ctx, func() error {
		err := b.pool.QueryRow(ctx, query, string(ns), key).Scan(&value)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// SetIfAbsent implements Backend. An existing row is only replaced once it
// has expired; a live row leaves the insert with no affected rows.
func (b *PostgresBackend) SetIfAbsent(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (namespace, key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
		WHERE cache_entries.expires_at <= now()
	`

	tag, err := b.pool.Exec(ctx, query, string(ns), key, value, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// Prune deletes expired rows and returns how many were removed.
func (b *PostgresBackend) Prune(ctx context.Context) (int64, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("pruning cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping implements Backend.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close implements Backend. The pool is owned by the caller.
func (b *PostgresBackend) Close() error { return nil }
