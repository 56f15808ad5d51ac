package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/provider/resilience"
)

type payload struct {
	Routes []string `json:"routes"`
}

func newFetchClient(t *testing.T, store *cache.Store) *fetch.Client {
	t.Helper()
	return fetch.NewClient(fetch.ClientConfig{
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("fetch-test")),
		Cache:      store,
		Logger:     zerolog.Nop(),
	})
}

func newStore() *cache.Store {
	return cache.NewStore(cache.StoreConfig{Backend: cache.NewMemoryBackend(), Logger: zerolog.Nop()})
}

func TestJSON_FetchesThenServesFromCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "HKHKG", r.URL.Query().Get("from"))
		assert.Equal(t, "secret", r.Header.Get("KeyId"))
		_, _ = w.Write([]byte(`{"routes":["a","b"]}`))
	}))
	defer server.Close()

	store := newStore()
	client := newFetchClient(t, store)
	req := fetch.Request{
		URL:       server.URL,
		Params:    url.Values{"from": {"HKHKG"}},
		Headers:   http.Header{"KeyId": {"secret"}},
		Namespace: cache.NamespaceResponse,
		TTL:       time.Minute,
	}

	res, err := fetch.JSON[payload](context.Background(), client, req)
	require.NoError(t, err)
	assert.Equal(t, fetch.OutcomeFetched, res.Outcome)
	assert.Equal(t, []string{"a", "b"}, res.Value.Routes)

	store.Wait()

	res, err = fetch.JSON[payload](context.Background(), client, req)
	require.NoError(t, err)
	assert.Equal(t, fetch.OutcomeCached, res.Outcome)
	assert.Equal(t, []string{"a", "b"}, res.Value.Routes)
	assert.Equal(t, int32(1), calls.Load(), "cache hit makes no network call")
}

func TestJSON_CacheKeyCoversParams(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"routes":[]}`))
	}))
	defer server.Close()

	store := newStore()
	client := newFetchClient(t, store)

	for _, to := range []string{"DEHAM", "NLRTM"} {
		_, err := fetch.JSON[payload](context.Background(), client, fetch.Request{
			URL:       server.URL,
			Params:    url.Values{"to": {to}},
			Namespace: cache.NamespaceResponse,
			TTL:       time.Minute,
		})
		require.NoError(t, err)
		store.Wait()
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestJSON_AbsentOnTransientFailures(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			res, err := fetch.JSON[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: server.URL})
			require.NoError(t, err)
			assert.True(t, res.Absent())
			assert.Equal(t, status, res.StatusCode)
			assert.ErrorIs(t, res.Err(), fetch.ErrAbsent)
		})
	}
}

func TestJSON_AbsentOnConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	res, err := fetch.JSON[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: addr})
	require.NoError(t, err)
	assert.True(t, res.Absent())
}

func TestJSON_NotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	res, err := fetch.JSON[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: server.URL})
	require.NoError(t, err)
	assert.False(t, res.Absent())
	assert.Empty(t, res.Value.Routes)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestJSON_ClientErrorIsHard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := fetch.JSON[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: server.URL})
	assert.ErrorIs(t, err, fetch.ErrUnexpectedStatus)
	assert.False(t, fetch.IsRetryable(err))
}

func TestJSON_DecodeFailureIsHard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"routes": "not-a-list"`))
	}))
	defer server.Close()

	_, err := fetch.JSON[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: server.URL})
	assert.ErrorIs(t, err, fetch.ErrDecode)
	assert.False(t, fetch.IsRetryable(err))
}

func TestJSON_PostsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"pol":"HKHKG"}`, string(body))
		_, _ = w.Write([]byte(`{"routes":["x"]}`))
	}))
	defer server.Close()

	res, err := fetch.JSON[payload](context.Background(), newFetchClient(t, nil), fetch.Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Body:   map[string]string{"pol": "HKHKG"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, res.Value.Routes)
}

func TestList_DecodesNDJSONStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			_, _ = fmt.Fprintf(w, "{\"routes\":[\"r%d\"]}\n", i)
			flusher.Flush()
		}
	}))
	defer server.Close()

	res, err := fetch.List[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: server.URL, Stream: true})
	require.NoError(t, err)
	require.Len(t, res.Value, 3)
	assert.Equal(t, []string{"r2"}, res.Value[2].Routes)
}

func TestList_StreamDecodeErrorIsHard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{\"routes\":[\"a\"]}\n{\"routes\":42}\n"))
	}))
	defer server.Close()

	_, err := fetch.List[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: server.URL, Stream: true})
	assert.ErrorIs(t, err, fetch.ErrDecode)
}

func TestList_JSONArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"routes":["a"]},{"routes":["b"]}]`))
	}))
	defer server.Close()

	res, err := fetch.List[payload](context.Background(), newFetchClient(t, nil), fetch.Request{URL: server.URL})
	require.NoError(t, err)
	assert.Len(t, res.Value, 2)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, fetch.IsRetryable(fetch.ErrAbsent))
	assert.True(t, fetch.IsRetryable(fmt.Errorf("maersk: %w", fetch.ErrAbsent)))
	assert.True(t, fetch.IsRetryable(context.DeadlineExceeded))
	assert.True(t, fetch.IsRetryable(resilience.ErrCircuitOpen))
	assert.False(t, fetch.IsRetryable(nil))
	assert.False(t, fetch.IsRetryable(errors.New("boom")))
	assert.False(t, fetch.IsRetryable(fetch.ErrDecode))
}
