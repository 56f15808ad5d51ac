// Package zim integrates the ZIM schedules API.
package zim

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
	Family = "zim"

	// DefaultBaseURL is the point-to-point schedule endpoint.
	DefaultBaseURL = "https://apigw.zim.com/schedules/v2/point-to-point"

	// DefaultTokenURL issues client-credentials tokens.
	DefaultTokenURL = "https://apigw.zim.com/oauth2/token"

	defaultScope = "Vessel Schedule"
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACZIMU}

// ClientConfig holds configuration for the ZIM client.
type ClientConfig struct {
	carrier.Options

	// SubscriptionKey is the API gateway key (required).
	SubscriptionKey string

	// ClientID and ClientSecret obtain access tokens (required).
	ClientID     string
	ClientSecret string

	// BaseURL and TokenURL override the endpoints (optional).
	BaseURL  string
	TokenURL string
}

// Client queries ZIM point-to-point schedules.
type Client struct {
	carrier.Base
	subscriptionKey string
	baseURL         string
	tokens          fetch.TokenSource
}

// NewClient creates a new ZIM client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := carrier.NewBase(Family, cfg.Options, Served...)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	tokens := fetch.NewTokenSource(fetch.TokenSourceConfig{
		Name: Family,
		Fetch: fetch.ClientCredentials(base.Fetch, fetch.OAuthConfig{
			TokenURL:     tokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scope:        defaultScope,
			Headers:      http.Header{"Ocp-Apim-Subscription-Key": {cfg.SubscriptionKey}},
		}),
		Cache:  base.Fetch.Cache(),
		Logger: base.Logger,
	})

	return &Client{
		Base:            base,
		subscriptionKey: cfg.SubscriptionKey,
		baseURL:         baseURL,
		tokens:          tokens,
	}, nil
}

// Schedules implements carrier.Carrier.
func (c *Client) Schedules(ctx context.Context, q schedule.Query) (iter.Seq[schedule.Schedule], error) {
	auth, err := c.tokens.Header(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Family, err)
	}

	res, err := fetch.JSON[Response](ctx, c.Fetch, c.request(q, auth))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Family, err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", Family, err)
	}
	return Adapt(res.Value, q.Filters, c.Code, c.Logger), nil
}

func (c *Client) request(q schedule.Query, auth string) fetch.Request {
	sortBy := "ByDeparture"
	if !q.DateType.IsDeparture() {
		sortBy = "ByArrival"
	}

	params := url.Values{}
	params.Set("originCode", q.Origin)
	params.Set("destCode", q.Destination)
	params.Set("fromDate", q.StartDateString())
	params.Set("toDate", q.EndDate().Format(schedule.DateLayout))
	params.Set("sortByDepartureOrArrival", sortBy)

	return fetch.Request{
		URL:    c.baseURL,
		Params: params,
		Headers: http.Header{
			"Ocp-Apim-Subscription-Key": {c.subscriptionKey},
			"Authorization":             {auth},
		},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
	}
}
