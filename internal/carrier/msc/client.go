// Package msc integrates the MSC schedules API. Access tokens are issued
// against an RS256 client assertion signed with the registered certificate.
package msc

import (
	"context"
	"crypto/rsa"
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
	Family = "msc"

	// DefaultBaseURL is the point-to-point schedules endpoint.
	DefaultBaseURL = "https://api.msc.com/mscapi/v2/schedules/point-to-point"

	// DefaultTokenURL is the identity provider token endpoint.
	DefaultTokenURL = "https://login.microsoftonline.com/msc.onmicrosoft.com/oauth2/v2.0/token"
)

// Served lists the SCACs operated through this API.
var Served = []schedule.SCAC{schedule.SCACMSCU}

// ClientConfig holds configuration for the MSC client.
type ClientConfig struct {
	carrier.Options

	// ClientID is the registered application (required).
	ClientID string

	// Scope is the requested token scope (required).
	Scope string

	// Thumbprint is the base64url x5t of the signing certificate (required).
	Thumbprint string

	// PrivateKey signs the client assertion (required).
	PrivateKey *rsa.PrivateKey

	// BaseURL and TokenURL override the endpoints (optional).
	BaseURL  string
	TokenURL string
}

// Client queries MSC point-to-point schedules.
type Client struct {
	carrier.Base
	baseURL string
	tokens  fetch.TokenSource
}

// NewClient creates a new MSC client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := carrier.NewBase(Family, cfg.Options, Served...)
	if err != nil {
		return nil, err
	}
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("%s: private key is required", Family)
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
			TokenURL: tokenURL,
			ClientID: cfg.ClientID,
			Scope:    cfg.Scope,
			Assertion: &fetch.JWTAssertion{
				ClientID:   cfg.ClientID,
				Audience:   tokenURL,
				Thumbprint: cfg.Thumbprint,
				PrivateKey: cfg.PrivateKey,
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
	related := "POL"
	if !q.DateType.IsDeparture() {
		related = "POD"
	}

	params := url.Values{}
	params.Set("fromPortUNCode", q.Origin)
	params.Set("toPortUNCode", q.Destination)
	params.Set("fromDate", q.StartDateString())
	params.Set("toDate", q.EndDate().Format(schedule.DateLayout))
	params.Set("datesRelated", related)

	return fetch.Request{
		URL:       c.baseURL,
		Params:    params,
		Headers:   http.Header{"Authorization": {auth}},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
	}
}
