// Package maersk integrates the Maersk ocean products API for Maersk and
// Maersk Line Limited sailings.
package maersk

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/schedule"
)

const (
	// Family identifies this carrier integration.
	Family = "maersk"

	// DefaultBaseURL is the ocean products endpoint.
	DefaultBaseURL = "https://api.maersk.com/products/ocean-products"
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACMAEU, schedule.SCACMAEI}

// ClientConfig holds configuration for the Maersk client.
type ClientConfig struct {
	carrier.Options

	// ConsumerKey is the API consumer key (required).
	ConsumerKey string

	// BaseURL is the ocean products URL (optional).
	BaseURL string
}

// Client queries Maersk ocean products.
type Client struct {
	carrier.Base
	consumerKey string
	baseURL     string
}

// NewClient creates a new Maersk client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := carrier.NewBase(Family, cfg.Options, Served...)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{Base: base, consumerKey: cfg.ConsumerKey, baseURL: baseURL}, nil
}

// Schedules implements carrier.Carrier.
func (c *Client) Schedules(ctx context.Context, q schedule.Query) (iter.Seq[schedule.Schedule], error) {
	res, err := fetch.JSON[Response](ctx, c.Fetch, c.request(q))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", Family, c.Code, err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", Family, c.Code, err)
	}
	return Adapt(res.Value, q.Filters, c.Code, c.Logger), nil
}

func (c *Client) request(q schedule.Query) fetch.Request {
	dateType := "D"
	if !q.DateType.IsDeparture() {
		dateType = "A"
	}

	params := url.Values{}
	params.Set("collectionOriginUNLocationCode", q.Origin)
	params.Set("deliveryDestinationUNLocationCode", q.Destination)
	params.Set("vesselOperatorCarrierCode", string(c.Code))
	params.Set("startDate", q.StartDateString())
	params.Set("startDateType", dateType)
	params.Set("dateRange", fmt.Sprintf("P%dW", q.SearchWeeks()))

	return fetch.Request{
		URL:       c.baseURL,
		Params:    params,
		Headers:   http.Header{"Consumer-Key": {c.consumerKey}},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
	}
}
