package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/app"
	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/schedule"
)

func testConfig() config.Config {
	return config.Config{
		Cache: config.Cache{Backend: config.CacheBackendMemory},
		Orchestrator: config.Orchestrator{
			Timeout:     2 * time.Second,
			MaxAttempts: 1,
			RetryDelay:  time.Millisecond,
		},
	}
}

func query() schedule.Query {
	return schedule.Query{
		Origin:      "CNSHA",
		Destination: "NLRTM",
		StartDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DateType:    schedule.DateTypeDeparture,
		SearchRange: 28,
	}
}

func TestBuildCarriers(t *testing.T) {
	registry := resilience.NewRegistry()
	carriers := config.Carriers{
		schedule.SCACCMDU: {APIKey: "k"},
		schedule.SCACAPLU: {APIKey: "k"},
		schedule.SCACMAEU: {APIKey: "k"},
		schedule.SCACHLCU: {ClientID: "id", ClientSecret: "secret"},
		schedule.SCACONEY: {APIKey: "k", Username: "u", Password: "p"},
		schedule.SCACZIMU: {SubscriptionKey: "k", ClientID: "id", ClientSecret: "secret"},
		schedule.SCACCOSU: {APIKey: "k"},
		schedule.SCACYMJA: {Username: "u", Password: "p"},
		schedule.SCACEGLV: {APIKey: "k"},
	}

	set, err := app.BuildCarriers(carriers, app.CarrierDeps{
		Pool:     resilience.NewPool(resilience.DefaultPoolConfig()),
		Registry: registry,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.Equal(t, 9, set.Len())
	assert.Equal(t, 9, registry.Count())

	families := map[schedule.SCAC]string{
		schedule.SCACCMDU: "cma",
		schedule.SCACAPLU: "cma",
		schedule.SCACMAEU: "maersk",
		schedule.SCACHLCU: "hapag",
		schedule.SCACONEY: "one",
		schedule.SCACZIMU: "zim",
		schedule.SCACCOSU: "iqax",
		schedule.SCACYMJA: "yangming",
		schedule.SCACEGLV: "evergreen",
	}
	for scac, family := range families {
		c, ok := set.Get(scac)
		require.True(t, ok, scac)
		assert.Equal(t, family, c.Name(), scac)
		assert.Equal(t, scac, c.SCAC())
		assert.NotNil(t, registry.GetHealth(string(scac)), scac)
	}
}

func TestBuildCarriers_SkipsDisabled(t *testing.T) {
	disabled := false
	set, err := app.BuildCarriers(config.Carriers{
		schedule.SCACEGLV: {APIKey: "k"},
		schedule.SCACCOSU: {APIKey: "k", Enabled: &disabled},
	}, app.CarrierDeps{Logger: zerolog.Nop()})
	require.NoError(t, err)

	assert.Equal(t, []schedule.SCAC{schedule.SCACEGLV}, set.SCACs())
}

func TestBuildCarriers_MSCNeedsPrivateKey(t *testing.T) {
	_, err := app.BuildCarriers(config.Carriers{
		schedule.SCACMSCU: {ClientID: "id", Scope: "scope"},
	}, app.CarrierDeps{Logger: zerolog.Nop()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MSCU")
	assert.ErrorIs(t, err, config.ErrNoPrivateKey)
}

func TestNew_NoCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendNone

	a, err := app.New(context.Background(), app.Options{Config: cfg, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cache)
	pruned, err := a.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pruned)
}

func TestApp_PrunesMemoryBackend(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryBackend()
	require.NoError(t, backend.SetIfAbsent(ctx, cache.NamespaceResponse, "stale", []byte("v"), time.Millisecond))
	require.NoError(t, backend.SetIfAbsent(ctx, cache.NamespaceResponse, "live", []byte("v"), time.Hour))

	a, err := app.New(ctx, app.Options{Config: testConfig(), Logger: zerolog.Nop(), Backend: backend})
	require.NoError(t, err)
	defer a.Close()

	time.Sleep(5 * time.Millisecond)
	pruned, err := a.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
	assert.Equal(t, 1, backend.Len())
}

func TestNew_SearchReachesCarrier(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "cma-key", r.Header.Get("KeyId"))
		assert.Equal(t, "CNSHA", r.URL.Query().Get("placeOfLoading"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	a, err := app.New(context.Background(), app.Options{
		Config: testConfig(),
		Carriers: config.Carriers{
			schedule.SCACCMDU: {APIKey: "cma-key", BaseURL: upstream.URL},
		},
		Logger:  zerolog.Nop(),
		Backend: cache.NewMemoryBackend(),
	})
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Search.Search(context.Background(), query())
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, []schedule.SCAC{schedule.SCACCMDU}, resp.FailedCarriers)
	assert.Equal(t, int32(1), calls.Load())

	health := a.Registry.GetHealth(string(schedule.SCACCMDU))
	require.NotNil(t, health)
	assert.NotNil(t, health.LastFailureAt)
}
