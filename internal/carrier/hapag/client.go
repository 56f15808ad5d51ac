// Package hapag integrates the Hapag-Lloyd commercial schedules API.
package hapag

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
	Family = "hapag"

	// DefaultBaseURL is the point-to-point routes endpoint.
	DefaultBaseURL = "https://api.hlag.com/hlag/external/v2/schedules/point-to-point-routes"

	routeLimit = "100"
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACHLCU}

// ClientConfig holds configuration for the Hapag-Lloyd client.
type ClientConfig struct {
	carrier.Options

	// ClientID and ClientSecret are the API gateway credentials (required).
	ClientID     string
	ClientSecret string

	// BaseURL is the routes URL (optional).
	BaseURL string
}

// Client queries Hapag-Lloyd point-to-point routes.
type Client struct {
	carrier.Base
	clientID     string
	clientSecret string
	baseURL      string
}

// NewClient creates a new Hapag-Lloyd client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := carrier.NewBase(Family, cfg.Options, Served...)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		Base:         base,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      baseURL,
	}, nil
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
	start := q.StartDateString()
	end := q.EndDate().Format(schedule.DateLayout)

	params := url.Values{}
	params.Set("placeOfReceipt", q.Origin)
	params.Set("placeOfDelivery", q.Destination)
	if q.DateType.IsDeparture() {
		params.Set("departureStartDate", start)
		params.Set("departureEndDate", end)
	} else {
		params.Set("arrivalStartDate", start)
		params.Set("arrivalEndDate", end)
	}
	params.Set("limit", routeLimit)

	return fetch.Request{
		URL:    c.baseURL,
		Params: params,
		Headers: http.Header{
			"X-IBM-Client-Id":     {c.clientID},
			"X-IBM-Client-Secret": {c.clientSecret},
		},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
	}
}
