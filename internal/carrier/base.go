package carrier

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/schedule"
)

// DefaultCacheTTL is how long raw carrier responses are cached.
const DefaultCacheTTL = 30 * time.Minute

// Options are the settings every carrier client shares.
type Options struct {
	// SCAC selects the code within the carrier family (required).
	SCAC schedule.SCAC

	// Fetch is the carrier's fetch/cache client (required).
	Fetch *fetch.Client

	// CacheTTL bounds raw response caching (default: 30 minutes).
	CacheTTL time.Duration

	// Logger for adapter and client operations.
	Logger zerolog.Logger
}

// Base implements the identity half of Carrier.
type Base struct {
	Code     schedule.SCAC
	Family   string
	Fetch    *fetch.Client
	CacheTTL time.Duration
	Logger   zerolog.Logger
}

// NewBase validates opts against the codes the family serves.
func NewBase(family string, opts Options, served ...schedule.SCAC) (Base, error) {
	if err := CheckSCAC(family, opts.SCAC, served...); err != nil {
		return Base{}, err
	}

	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	f := opts.Fetch
	if f == nil {
		f = fetch.NewClient(fetch.ClientConfig{Logger: opts.Logger})
	}

	return Base{
		Code:     opts.SCAC,
		Family:   family,
		Fetch:    f,
		CacheTTL: ttl,
		Logger:   opts.Logger.With().Str("carrier", family).Str("scac", string(opts.SCAC)).Logger(),
	}, nil
}

// SCAC implements Carrier.
func (b Base) SCAC() schedule.SCAC { return b.Code }

// Name implements Carrier.
func (b Base) Name() string { return b.Family }
