// Package evergreen integrates the Evergreen schedule stream.
package evergreen

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/schedule"
)

const (
	// Family identifies this carrier integration.
	Family = "evergreen"

	// DefaultBaseURL is the point-to-point stream endpoint.
	DefaultBaseURL = "https://api.evergreen-line.com/schedule/v1/point-to-point"
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACEGLV}

// ClientConfig holds configuration for the Evergreen client.
type ClientConfig struct {
	carrier.Options

	// APIKey is sent in the apikey header (required).
	APIKey string

	// BaseURL overrides the endpoint (optional).
	BaseURL string
}

// Client queries Evergreen point-to-point schedules.
type Client struct {
	carrier.Base
	apiKey  string
	baseURL string
}

// NewClient creates a new Evergreen client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := carrier.NewBase(Family, cfg.Options, Served...)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{Base: base, apiKey: cfg.APIKey, baseURL: baseURL}, nil
}

// Schedules implements carrier.Carrier.
func (c *Client) Schedules(ctx context.Context, q schedule.Query) (iter.Seq[schedule.Schedule], error) {
	res, err := fetch.List[Route](ctx, c.Fetch, c.request(q))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Family, err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", Family, err)
	}
	return Adapt(res.Value, q.Filters, c.Code, c.Logger), nil
}

func (c *Client) request(q schedule.Query) fetch.Request {
	dateType := "ETD"
	if !q.DateType.IsDeparture() {
		dateType = "ETA"
	}

	params := url.Values{}
	params.Set("originPort", q.Origin)
	params.Set("destinationPort", q.Destination)
	params.Set("date", q.StartDateString())
	params.Set("dateType", dateType)
	params.Set("rangeDays", strconv.Itoa(q.SearchRange))

	return fetch.Request{
		URL:    c.baseURL,
		Params: params,
		Headers: http.Header{
			"apikey": {c.apiKey},
			"Accept": {"application/x-ndjson"},
		},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
		Stream:    true,
	}
}
