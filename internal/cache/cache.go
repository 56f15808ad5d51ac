// Package cache stores raw carrier responses, access tokens and finished
// products in a shared TTL key-value store with first-writer-wins writes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Cache errors.
var (
	// ErrConflict is returned by SetIfAbsent when a live entry already exists.
	ErrConflict = errors.New("cache entry already exists")

	// ErrUnavailable is returned once a backend operation has exhausted its retries.
	ErrUnavailable = errors.New("cache backend unavailable")
)

// Namespace partitions the key space.
type Namespace string

const (
	NamespaceResponse Namespace = "response"
	NamespaceToken    Namespace = "token"
	NamespaceProduct  Namespace = "product"
)

// Backend is a shared key-value store with expiring entries.
type Backend interface {
	// Get returns the value and true, or false on a miss.
	Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error)

	// SetIfAbsent stores value only when no live entry exists for key.
	// It returns ErrConflict when another writer got there first.
	SetIfAbsent(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Key hashes its parts into a fixed-length cache key.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func qualify(ns Namespace, key string) string {
	return string(ns) + ":" + key
}

// RetryPolicy bounds how often a backend read is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times starting at 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.InitialInterval == 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// do runs op with exponential backoff and maps exhaustion to ErrUnavailable.
func (p RetryPolicy) do(ctx context.Context, op func() error) error {
	p = p.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxRetries), ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
