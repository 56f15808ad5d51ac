package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/cache"
)

func newRedisBackend(t *testing.T) (*cache.RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b := cache.NewRedisBackend(cache.RedisConfig{
		Addr:   mr.Addr(),
		Prefix: "p2p:",
		Retry: cache.RetryPolicy{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	})
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBackend_GetSet(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	_, found, err := b.Get(ctx, cache.NamespaceResponse, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, b.SetIfAbsent(ctx, cache.NamespaceResponse, "k", []byte("payload"), time.Minute))
	assert.True(t, mr.Exists("p2p:response:k"))

	v, found, err := b.Get(ctx, cache.NamespaceResponse, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("payload"), v)
}

func TestRedisBackend_ConflictDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	b, _ := newRedisBackend(t)

	require.NoError(t, b.SetIfAbsent(ctx, cache.NamespaceToken, "k", []byte("first"), time.Minute))
	assert.ErrorIs(t, b.SetIfAbsent(ctx, cache.NamespaceToken, "k", []byte("second"), time.Minute), cache.ErrConflict)

	v, _, err := b.Get(ctx, cache.NamespaceToken, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), v)
}

func TestRedisBackend_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	require.NoError(t, b.SetIfAbsent(ctx, cache.NamespaceProduct, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := b.Get(ctx, cache.NamespaceProduct, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, b.SetIfAbsent(ctx, cache.NamespaceProduct, "k", []byte("v2"), time.Minute))
}

func TestRedisBackend_ConcurrentWritersOneWins(t *testing.T) {
	ctx := context.Background()
	b, _ := newRedisBackend(t)

	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.SetIfAbsent(ctx, cache.NamespaceResponse, "race", []byte("v"), time.Minute)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, cache.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), conflicts.Load())
}

func TestRedisBackend_UnavailableAfterRetries(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)
	mr.Close()

	_, _, err := b.Get(ctx, cache.NamespaceResponse, "k")
	assert.ErrorIs(t, err, cache.ErrUnavailable)

	err = b.SetIfAbsent(ctx, cache.NamespaceResponse, "k", []byte("v"), time.Minute)
	assert.ErrorIs(t, err, cache.ErrUnavailable)

	assert.ErrorIs(t, b.Ping(ctx), cache.ErrUnavailable)
}
