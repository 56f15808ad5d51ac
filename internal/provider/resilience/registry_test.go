package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/provider/resilience"
)

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("MSCU")
	cfg.Registry = registry

	client := resilience.NewClient(cfg)

	assert.Equal(t, 1, registry.Count())

	health := registry.GetHealth("MSCU")
	require.NotNil(t, health)
	assert.Equal(t, "MSCU", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.False(t, health.IsDegraded())
	assert.False(t, health.IsUnhealthy())
	assert.Equal(t, "MSCU", client.Name())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("ONEY")
	cfg.Registry = registry
	_ = resilience.NewClient(cfg)

	registry.Unregister("ONEY")

	assert.Equal(t, 0, registry.Count())
	assert.Nil(t, registry.GetHealth("ONEY"))
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("ZIMU")
	cfg.Registry = registry
	_ = resilience.NewClient(cfg)

	health := registry.GetHealth("ZIMU")
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	registry.RecordSuccess("ZIMU")
	registry.RecordFailure("ZIMU", errors.New("connection reset"))
	registry.RecordFailure("unknown", errors.New("ignored"))

	health = registry.GetHealth("ZIMU")
	assert.NotNil(t, health.LastSuccessAt)
	assert.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "connection reset", health.LastError)
}

func TestRegistry_ClientReportsOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("EGLV")
	cfg.Registry = registry
	client := resilience.NewClient(cfg)

	for _, path := range []string{"/ok", "/fail"} {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+path, http.NoBody)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	health := registry.GetHealth("EGLV")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "Bad Gateway")
}

func TestRegistry_GetAllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"ZIMU", "CMDU", "MAEU"} {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}

	all := registry.GetAllHealth()
	require.Len(t, all, 3)
	assert.Equal(t, "CMDU", all[0].Name)
	assert.Equal(t, "MAEU", all[1].Name)
	assert.Equal(t, "ZIMU", all[2].Name)
}
