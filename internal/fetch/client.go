package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/telemetry"
)

// Request is one logical call to a carrier endpoint.
type Request struct {
	// Method defaults to GET.
	Method string
	URL    string
	Params url.Values

	// Body is sent as-is when it is []byte, form-encoded when it is
	// url.Values and JSON-encoded otherwise.
	Body any

	Headers http.Header

	// Namespace enables response caching when set.
	Namespace cache.Namespace
	TTL       time.Duration

	// Stream marks a newline-delimited JSON response for List.
	Stream bool

	// PageSize is the Range window used by Pages (default 50).
	PageSize int

	// Operation labels metrics and logs (default "schedules").
	Operation string
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) operation() string {
	if r.Operation == "" {
		return "schedules"
	}
	return r.Operation
}

func (r Request) encodeBody() (io.Reader, string, []byte, error) {
	switch b := r.Body.(type) {
	case nil:
		return http.NoBody, "", nil, nil
	case []byte:
		return bytes.NewReader(b), "application/json", b, nil
	case url.Values:
		encoded := []byte(b.Encode())
		return bytes.NewReader(encoded), "application/x-www-form-urlencoded", encoded, nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, "", nil, fmt.Errorf("encoding request body: %w", err)
		}
		return bytes.NewReader(encoded), "application/json", encoded, nil
	}
}

// cacheKey covers the method, URL, sorted query parameters and body.
func (r Request) cacheKey() (string, error) {
	_, _, body, err := r.encodeBody()
	if err != nil {
		return "", err
	}
	return cache.Key(r.method(), r.URL, r.Params.Encode(), string(body)), nil
}

func (r Request) cacheable() bool {
	return r.Namespace != "" && r.TTL > 0
}

// ClientConfig holds configuration for the fetch client.
type ClientConfig struct {
	// HTTPClient is the carrier's resilient client (optional).
	// If nil, a client with defaults is created.
	HTTPClient *resilience.Client

	// Cache stores raw responses (optional).
	Cache *cache.Store

	// Logger for fetch operations.
	Logger zerolog.Logger

	// Metrics records request outcomes (optional).
	Metrics *telemetry.CarrierMetrics
}

// Client is the fetch/cache client of one carrier.
type Client struct {
	httpClient *resilience.Client
	cache      *cache.Store
	logger     zerolog.Logger
	metrics    *telemetry.CarrierMetrics
}

// NewClient creates a new fetch client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig("fetch"))
	}

	return &Client{
		httpClient: httpClient,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Name returns the name of the underlying HTTP client.
func (c *Client) Name() string {
	return c.httpClient.Name()
}

// Cache returns the store shared by responses and tokens, possibly nil.
func (c *Client) Cache() *cache.Store {
	return c.cache
}

// response is a received upstream response with its classification.
type response struct {
	status int
	header http.Header
	body   io.ReadCloser
	absent bool
}

// send issues req and classifies the response. Transport errors, 5xx and 429
// come back as absent with a nil error; other 4xx except 404 are errors.
func (c *Client) send(ctx context.Context, req Request, extra http.Header) (*response, error) {
	body, contentType, _, err := req.encodeBody()
	if err != nil {
		return nil, err
	}

	target := req.URL
	if len(req.Params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range extra {
		httpReq.Header[k] = vs
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(c.Name(), req.operation(), time.Since(start), err)
		c.logger.Warn().Err(err).Str("carrier", c.Name()).Str("operation", req.operation()).Msg("carrier request failed")
		return &response{absent: true}, nil
	}
	c.metrics.RecordRequest(c.Name(), req.operation(), time.Since(start), statusErr(resp.StatusCode))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		drain(resp.Body)
		c.logger.Warn().Int("status", resp.StatusCode).Str("carrier", c.Name()).Msg("carrier unavailable")
		return &response{status: resp.StatusCode, header: resp.Header, absent: true}, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		drain(resp.Body)
		return &response{status: resp.StatusCode, header: resp.Header, body: http.NoBody}, nil
	case resp.StatusCode >= 300:
		drain(resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: resp.Body}, nil
}

func (r *response) empty() bool {
	return r.status == http.StatusNotFound || r.status == http.StatusNoContent
}

func statusErr(status int) error {
	if status >= 500 || status == http.StatusTooManyRequests {
		return &resilience.ServerError{StatusCode: status}
	}
	return nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

// keyFor returns the response cache key, or "" when req is not cached.
func keyFor(req Request) string {
	if !req.cacheable() {
		return ""
	}
	key, err := req.cacheKey()
	if err != nil {
		return ""
	}
	return key
}

// lookup returns the cached raw JSON under key. Backend trouble is logged and
// treated as a miss.
func (c *Client) lookup(ctx context.Context, ns cache.Namespace, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	var raw []byte
	found, err := c.cache.Get(ctx, ns, key, &raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("carrier", c.Name()).Msg("response cache unavailable, fetching")
		return nil, false
	}
	return raw, found
}

func (c *Client) remember(ns cache.Namespace, key string, raw []byte, ttl time.Duration) {
	if key == "" {
		return
	}
	c.cache.SetAsync(ns, key, raw, ttl)
}

// JSON fetches and decodes a single JSON document.
func JSON[T any](ctx context.Context, c *Client, req Request) (Result[T], error) {
	var zero T

	key := keyFor(req)
	if raw, found := c.lookup(ctx, req.Namespace, key); found {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return Result[T]{Value: v, Outcome: OutcomeCached, StatusCode: http.StatusOK}, nil
		}
		c.logger.Warn().Str("carrier", c.Name()).Str("key", key).Msg("discarding undecodable cache entry")
	}

	resp, err := c.send(ctx, req, nil)
	if err != nil {
		return Result[T]{}, err
	}
	if resp.absent {
		return Result[T]{Value: zero, Outcome: OutcomeAbsent, StatusCode: resp.status}, nil
	}
	if resp.empty() {
		return Result[T]{Value: zero, Outcome: OutcomeFetched, StatusCode: resp.status}, nil
	}
	defer resp.body.Close()

	raw, err := io.ReadAll(resp.body)
	if err != nil {
		return Result[T]{Value: zero, Outcome: OutcomeAbsent, StatusCode: resp.status}, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return Result[T]{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	c.remember(req.Namespace, key, raw, req.TTL)
	return Result[T]{Value: v, Outcome: OutcomeFetched, StatusCode: resp.status}, nil
}

// List fetches a collection sent either as a JSON array or, when
// req.Stream is set, as newline-delimited JSON decoded as it arrives.
func List[T any](ctx context.Context, c *Client, req Request) (Result[[]T], error) {
	if !req.Stream {
		return JSON[[]T](ctx, c, req)
	}

	key := keyFor(req)
	if raw, found := c.lookup(ctx, req.Namespace, key); found {
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil {
			return Result[[]T]{Value: items, Outcome: OutcomeCached, StatusCode: http.StatusOK}, nil
		}
	}

	resp, err := c.send(ctx, req, nil)
	if err != nil {
		return Result[[]T]{}, err
	}
	if resp.absent {
		return Result[[]T]{Outcome: OutcomeAbsent, StatusCode: resp.status}, nil
	}
	if resp.empty() {
		return Result[[]T]{Outcome: OutcomeFetched, StatusCode: resp.status}, nil
	}
	defer resp.body.Close()

	items, err := decodeStream[T](resp.body)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return Result[[]T]{}, err
		}
		// The connection broke mid-stream.
		return Result[[]T]{Outcome: OutcomeAbsent, StatusCode: resp.status}, nil
	}

	if key != "" {
		if raw, err := json.Marshal(items); err == nil {
			c.remember(req.Namespace, key, raw, req.TTL)
		}
	}
	return Result[[]T]{Value: items, Outcome: OutcomeFetched, StatusCode: resp.status}, nil
}

func decodeStream[T any](r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)
	var items []T
	for {
		var item T
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				return nil, fmt.Errorf("%w: record %d: %w", ErrDecode, len(items), err)
			}
			return nil, err
		}
		items = append(items, item)
	}
}
