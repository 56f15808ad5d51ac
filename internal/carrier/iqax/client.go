// Package iqax integrates the IQAX route search API used by COSCO and OOCL.
package iqax

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/schedule"
)

const (
	// Family identifies this carrier integration.
	Family = "iqax"

	// DefaultBaseURL is the route search endpoint.
	DefaultBaseURL = "https://api.iqax.com/schedules/v2/routings"

	defaultLimit = 100
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACCOSU, schedule.SCACOOLU}

// ClientConfig holds configuration for the IQAX client.
type ClientConfig struct {
	carrier.Options

	// APIKey is sent as the apiKey query parameter (required).
	APIKey string

	// BaseURL overrides the endpoint (optional).
	BaseURL string
}

// Client queries IQAX point-to-point routes for one SCAC.
type Client struct {
	carrier.Base
	apiKey  string
	baseURL string
}

// NewClient creates a new IQAX client.
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
	res, err := fetch.JSON[Response](ctx, c.Fetch, c.request(q))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Family, err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", Family, err)
	}
	return Adapt(res.Value, q.Filters, c.Code, c.Logger), nil
}

func (c *Client) request(q schedule.Query) fetch.Request {
	from, to := "departureFrom", "departureTo"
	if !q.DateType.IsDeparture() {
		from, to = "arrivalFrom", "arrivalTo"
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("porID", q.Origin)
	params.Set("fndID", q.Destination)
	params.Set(from, q.StartDateString())
	params.Set(to, q.EndDate().Format(schedule.DateLayout))
	params.Set("scac", c.Code.String())
	params.Set("limit", strconv.Itoa(defaultLimit))

	return fetch.Request{
		URL:       c.baseURL,
		Params:    params,
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
	}
}
