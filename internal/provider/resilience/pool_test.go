package resilience_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/provider/resilience"
)

func TestPool_DefaultLimits(t *testing.T) {
	pool := resilience.NewPool(resilience.PoolConfig{})

	limits := pool.Limits()
	assert.Equal(t, 100, limits.MaxIdleConns)
	assert.Equal(t, 20, limits.MaxConnsPerHost)
	assert.Zero(t, limits.Growths)
}

func TestPool_GrowsWhenExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(80 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	pool := resilience.NewPool(resilience.PoolConfig{
		MaxIdleConns:        1,
		MaxConnsPerHost:     1,
		ExhaustionThreshold: 20 * time.Millisecond,
		GrowthStep:          4,
		MaxConnsCeiling:     9,
		Logger:              zerolog.Nop(),
	})
	defer pool.CloseIdleConnections()
	client := &http.Client{Transport: pool}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
			if err != nil {
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	limits := pool.Limits()
	require.GreaterOrEqual(t, limits.Growths, 1)
	assert.Greater(t, limits.MaxConnsPerHost, 1)
	assert.LessOrEqual(t, limits.MaxConnsPerHost, 9)
}

func TestPool_NeverGrowsWithoutContention(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	pool := resilience.NewPool(resilience.PoolConfig{MaxConnsPerHost: 2, ExhaustionThreshold: time.Second})
	client := &http.Client{Transport: pool}

	for i := 0; i < 5; i++ {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	assert.Equal(t, 2, pool.Limits().MaxConnsPerHost)
	assert.Zero(t, pool.Limits().Growths)
}
