package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/carrier/cma"
	"github.com/schedulehub/p2p/internal/carrier/evergreen"
	"github.com/schedulehub/p2p/internal/carrier/hapag"
	"github.com/schedulehub/p2p/internal/carrier/iqax"
	"github.com/schedulehub/p2p/internal/carrier/maersk"
	"github.com/schedulehub/p2p/internal/carrier/msc"
	"github.com/schedulehub/p2p/internal/carrier/one"
	"github.com/schedulehub/p2p/internal/carrier/yangming"
	"github.com/schedulehub/p2p/internal/carrier/zim"
	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/schedule"
	"github.com/schedulehub/p2p/internal/telemetry"
)

// CarrierDeps are the shared collaborators of every carrier client.
type CarrierDeps struct {
	Cache    *cache.Store
	Pool     *resilience.Pool
	Registry *resilience.Registry
	Metrics  *telemetry.CarrierMetrics
	Logger   zerolog.Logger

	// CacheTTL is the default raw response TTL.
	CacheTTL time.Duration

	// HTTPTimeout is the per-call backstop of each carrier client.
	HTTPTimeout time.Duration
}

// BuildCarriers creates a client for every enabled SCAC. Each SCAC gets its
// own circuit breaker, registered under the SCAC, over the shared pool.
func BuildCarriers(carriers config.Carriers, deps CarrierDeps) (*carrier.Set, error) {
	set := carrier.NewSet()
	var errs []error

	for _, scac := range carriers.Enabled() {
		c, err := buildCarrier(scac, carriers[scac], deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", scac, err))
			continue
		}
		set.Add(c)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set, nil
}

func buildCarrier(scac schedule.SCAC, cfg config.CarrierConfig, deps CarrierDeps) (carrier.Carrier, error) {
	clientCfg := resilience.DefaultClientConfig(string(scac))
	clientCfg.Pool = deps.Pool
	clientCfg.Registry = deps.Registry
	clientCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(deps.Logger)
	if deps.HTTPTimeout > 0 {
		clientCfg.Timeout = deps.HTTPTimeout
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = deps.CacheTTL
	}

	opts := carrier.Options{
		SCAC: scac,
		Fetch: fetch.NewClient(fetch.ClientConfig{
			HTTPClient: resilience.NewClient(clientCfg),
			Cache:      deps.Cache,
			Logger:     deps.Logger,
			Metrics:    deps.Metrics,
		}),
		CacheTTL: ttl,
		Logger:   deps.Logger,
	}

	switch {
	case slices.Contains(cma.Served, scac):
		return cma.NewClient(cma.ClientConfig{Options: opts, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case slices.Contains(maersk.Served, scac):
		return maersk.NewClient(maersk.ClientConfig{Options: opts, ConsumerKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case slices.Contains(hapag.Served, scac):
		return hapag.NewClient(hapag.ClientConfig{
			Options:      opts,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			BaseURL:      cfg.BaseURL,
		})
	case slices.Contains(msc.Served, scac):
		key, err := cfg.LoadPrivateKey()
		if err != nil {
			return nil, err
		}
		return msc.NewClient(msc.ClientConfig{
			Options:    opts,
			ClientID:   cfg.ClientID,
			Scope:      cfg.Scope,
			Thumbprint: cfg.Thumbprint,
			PrivateKey: key,
			BaseURL:    cfg.BaseURL,
			TokenURL:   cfg.TokenURL,
		})
	case slices.Contains(one.Served, scac):
		return one.NewClient(one.ClientConfig{
			Options:  opts,
			APIKey:   cfg.APIKey,
			Username: cfg.Username,
			Password: cfg.Password,
			BaseURL:  cfg.BaseURL,
			TokenURL: cfg.TokenURL,
		})
	case slices.Contains(zim.Served, scac):
		return zim.NewClient(zim.ClientConfig{
			Options:         opts,
			SubscriptionKey: cfg.SubscriptionKey,
			ClientID:        cfg.ClientID,
			ClientSecret:    cfg.ClientSecret,
			BaseURL:         cfg.BaseURL,
			TokenURL:        cfg.TokenURL,
		})
	case slices.Contains(iqax.Served, scac):
		return iqax.NewClient(iqax.ClientConfig{Options: opts, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case slices.Contains(yangming.Served, scac):
		return yangming.NewClient(yangming.ClientConfig{
			Options:  opts,
			Username: cfg.Username,
			Password: cfg.Password,
			BaseURL:  cfg.BaseURL,
			TokenURL: cfg.TokenURL,
		})
	case slices.Contains(evergreen.Served, scac):
		return evergreen.NewClient(evergreen.ClientConfig{Options: opts, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	default:
		return nil, fmt.Errorf("%w: %s", schedule.ErrUnknownSCAC, scac)
	}
}
