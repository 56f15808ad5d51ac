// Package cma integrates the CMA CGM group routing finder, which serves the
// CMA CGM, ANL, Cheng Lie and APL brands.
package cma

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
	Family = "cma"

	// DefaultBaseURL is the routing finder endpoint.
	DefaultBaseURL = "https://apis.cma-cgm.net/vesseloperation/route/v2/routings"

	// pageSize is the Range window the routing finder accepts.
	pageSize = 49
)

// Served lists the SCACs of the group.
var Served = []schedule.SCAC{schedule.SCACCMDU, schedule.SCACANNU, schedule.SCACCHNL, schedule.SCACAPLU}

// shippingCompanies maps SCACs to the group's internal brand codes.
var shippingCompanies = map[schedule.SCAC]string{
	schedule.SCACCMDU: "0001",
	schedule.SCACANNU: "0002",
	schedule.SCACCHNL: "0011",
	schedule.SCACAPLU: "0015",
}

var brands = map[string]schedule.SCAC{
	"0001": schedule.SCACCMDU,
	"0002": schedule.SCACANNU,
	"0011": schedule.SCACCHNL,
	"0015": schedule.SCACAPLU,
}

// ClientConfig holds configuration for the CMA CGM client.
type ClientConfig struct {
	carrier.Options

	// APIKey is sent in the KeyId header (required).
	APIKey string

	// BaseURL is the routing finder URL (optional).
	BaseURL string
}

// Client queries the routing finder for one brand.
type Client struct {
	carrier.Base
	apiKey  string
	baseURL string
}

// NewClient creates a new CMA CGM client.
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
	res, err := fetch.Pages[Routing](ctx, c.Fetch, c.request(q))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", Family, c.Code, err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", Family, c.Code, err)
	}
	return Adapt(res.Value, q.Filters, c.Code, c.Logger), nil
}

func (c *Client) request(q schedule.Query) fetch.Request {
	params := url.Values{}
	params.Set("placeOfLoading", q.Origin)
	params.Set("placeOfDischarge", q.Destination)
	if q.DateType.IsDeparture() {
		params.Set("departureDate", q.StartDateString())
	} else {
		params.Set("arrivalDate", q.StartDateString())
	}
	params.Set("searchRange", strconv.Itoa(q.SearchWeeks()))
	params.Set("shippingCompany", shippingCompanies[c.Code])
	if q.Filters.DirectOnly != nil && *q.Filters.DirectOnly {
		params.Set("maxTs", "0")
	}

	return fetch.Request{
		URL:       c.baseURL,
		Params:    params,
		Headers:   http.Header{"KeyId": {c.apiKey}},
		Namespace: cache.NamespaceResponse,
		TTL:       c.CacheTTL,
		PageSize:  pageSize,
	}
}
