// Package yangming integrates the Yang Ming e-service schedule API.
package yangming

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/schedule"
)

const (
	// Family identifies this carrier integration.
	Family = "yangming"

	// DefaultBaseURL is the point-to-point search endpoint.
	DefaultBaseURL = "https://api.yangming.com/schedule/v1/p2p"

	// DefaultTokenURL is the login endpoint returning a JWT.
	DefaultTokenURL = "https://api.yangming.com/auth/v1/login"
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACYMJA}

// ClientConfig holds configuration for the Yang Ming client.
type ClientConfig struct {
	carrier.Options

	// Username and Password authenticate the login call (required).
	Username string
	Password string

	// BaseURL and TokenURL override the endpoints (optional).
	BaseURL  string
	TokenURL string
}

// Client queries Yang Ming point-to-point schedules.
type Client struct {
	carrier.Base
	baseURL string
	tokens  fetch.TokenSource
}

// NewClient creates a new Yang Ming client.
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
		Fetch: fetch.Login(base.Fetch, fetch.LoginConfig{
			URL: tokenURL,
			Body: map[string]string{
				"username": cfg.Username,
				"password": cfg.Password,
			},
		}),
		Cache:  base.Fetch.Cache(),
		Logger: base.Logger,
	})

	return &Client{Base: base, baseURL: baseURL, tokens: tokens}, nil
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
	searchType := "D"
	if !q.DateType.IsDeparture() {
		searchType = "A"
	}

	return fetch.Request{
		Method: http.MethodPost,
		URL:    c.baseURL,
		Body: SearchRequest{
			POL:        q.Origin,
			POD:        q.Destination,
			SearchDate: q.StartDateString(),
			SearchType: searchType,
			Weeks:      q.SearchWeeks(),
		},
		Headers:   http.Header{"Authorization": {auth}},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
	}
}
