package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds configuration for the Redis backend.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	Password string
	DB       int

	// Prefix is prepended to every key (optional).
	Prefix string

	// Retry bounds read retries. Zero fields use DefaultRetryPolicy.
	Retry RetryPolicy

	// Client overrides the connection built from Addr (optional).
	Client redis.UniversalClient
}

// RedisBackend is a Backend shared by every API and worker instance.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
	retry  RetryPolicy
}

// NewRedisBackend creates a Redis backend. The go-redis pool reconnects on
// its own, so a retried read runs on a fresh connection.
func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	client := cfg.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	return &RedisBackend{
		client: client,
		prefix: cfg.Prefix,
		retry:  cfg.Retry,
	}
}

func (b *RedisBackend) key(ns Namespace, key string) string {
	return b.prefix + qualify(ns, key)
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)

	err := b.retry.do(ctx, func() error {
		v, err := b.client.Get(ctx, b.key(ns, key)).Bytes()
		if errors.Is(err, redis.Nil) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// SetIfAbsent implements Backend with WATCH, EXISTS and a MULTI/EXEC SET.
// A concurrent write to the watched key aborts the transaction.
func (b *RedisBackend) SetIfAbsent(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error {
	k := b.key(ns, key)

	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, k).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, value, ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict), errors.Is(err, redis.TxFailedErr):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// Ping implements Backend.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
