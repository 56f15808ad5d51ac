// Package one integrates the Ocean Network Express schedule API.
package one

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
	Family = "one"

	// DefaultBaseURL is the point-to-point search endpoint.
	DefaultBaseURL = "https://api.one-line.com/v1/schedules/point-to-point"

	// DefaultTokenURL issues access tokens.
	DefaultTokenURL = "https://api.one-line.com/v1/oauth/token"
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACONEY}

// ClientConfig holds configuration for the ONE client.
type ClientConfig struct {
	carrier.Options

	// APIKey is sent in the apikey header of every call (required).
	APIKey string

	// Username and Password authenticate the token request (required).
	Username string
	Password string

	// BaseURL and TokenURL override the endpoints (optional).
	BaseURL  string
	TokenURL string
}

// Client queries ONE point-to-point schedules.
type Client struct {
	carrier.Base
	apiKey  string
	baseURL string
	tokens  fetch.TokenSource
}

// NewClient creates a new ONE client.
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
			ClientID:     cfg.Username,
			ClientSecret: cfg.Password,
			BasicAuth:    true,
			Headers:      http.Header{"apikey": {cfg.APIKey}},
		}),
		Cache:  base.Fetch.Cache(),
		Logger: base.Logger,
	})

	return &Client{Base: base, apiKey: cfg.APIKey, baseURL: baseURL, tokens: tokens}, nil
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
	searchType := "BY_DEPARTURE_DATE"
	if !q.DateType.IsDeparture() {
		searchType = "BY_ARRIVAL_DATE"
	}

	params := url.Values{}
	params.Set("originPort", q.Origin)
	params.Set("destinationPort", q.Destination)
	params.Set("searchDateType", searchType)
	params.Set("searchDate", q.StartDateString())
	params.Set("weeksOut", strconv.Itoa(q.SearchWeeks()))

	return fetch.Request{
		URL:    c.baseURL,
		Params: params,
		Headers: http.Header{
			"apikey":        {c.apiKey},
			"Authorization": {auth},
		},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
	}
}
