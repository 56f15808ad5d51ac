// Package assembler merges per-carrier results into the serialized product.
package assembler

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/orchestrator"
	"github.com/schedulehub/p2p/internal/schedule"
)

// DefaultProductTTL is how long an assembled product stays in cache.
const DefaultProductTTL = 15 * time.Minute

// Entry is the cached form of an assembled product.
type Entry struct {
	Body  []byte `msgpack:"body"`
	Count int    `msgpack:"count"`
}

// Result is an assembled, serialized product.
type Result struct {
	// Body is the JSON product, or the empty-product document when Count is 0.
	Body           []byte
	Count          int
	FailedCarriers []schedule.SCAC
}

// Empty reports whether no carrier produced a schedule.
func (r *Result) Empty() bool {
	return r.Count == 0
}

// Config holds configuration for the assembler.
type Config struct {
	// Cache receives finished products (optional).
	Cache *cache.Store

	// TTL of cached products (default: 15 minutes).
	TTL time.Duration

	Logger zerolog.Logger
}

// Assembler flattens, sorts, validates and serializes carrier results.
type Assembler struct {
	cache  *cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates an assembler.
func New(cfg Config) *Assembler {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultProductTTL
	}
	return &Assembler{cache: cfg.Cache, ttl: ttl, logger: cfg.Logger}
}

// ProductKey is the cache key of the product answering q.
func ProductKey(q schedule.Query) string {
	return cache.Key(q.Signature())
}

// Assemble builds the product for q from the orchestrator outcome. Products
// from runs where every carrier answered are cached in the background;
// partial ones are not, so a recovered carrier is picked up on the next
// search.
func (a *Assembler) Assemble(q schedule.Query, outcome orchestrator.Outcome) (*Result, error) {
	schedules := Flatten(outcome.Results)

	var (
		body []byte
		err  error
	)
	if len(schedules) == 0 {
		body, err = json.Marshal(schedule.NewEmptyProduct(q, outcome.FailedCarriers))
	} else {
		body, err = a.product(q, schedules)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		Body:           body,
		Count:          len(schedules),
		FailedCarriers: outcome.FailedCarriers,
	}

	if !outcome.HasErrors {
		a.cache.SetAsync(cache.NamespaceProduct, ProductKey(q), Entry{Body: body, Count: result.Count}, a.ttl)
	}

	a.logger.Debug().
		Str("origin", q.Origin).
		Str("destination", q.Destination).
		Int("schedules", result.Count).
		Int("failed_carriers", len(outcome.FailedCarriers)).
		Msg("product assembled")

	return result, nil
}

func (a *Assembler) product(q schedule.Query, schedules []schedule.Schedule) ([]byte, error) {
	slices.SortStableFunc(schedules, schedule.CompareSchedules)

	p := schedule.Product{
		ProductID:     q.ProductID(),
		Origin:        q.Origin,
		Destination:   q.Destination,
		ScheduleCount: len(schedules),
		Schedules:     schedules,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating product: %w", err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding product: %w", err)
	}
	return body, nil
}

// Flatten concatenates the schedules of every successful task in task order,
// keeping the first occurrence of a sailing that more than one task returned.
// Carrier families that share an upstream (CMA CGM brands, COSCO and OOCL)
// report each other's routings under the same code.
func Flatten(results []orchestrator.TaskResult) []schedule.Schedule {
	var out []schedule.Schedule
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Absent() {
			continue
		}
		for _, s := range r.Schedules {
			key := identity(s)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// identity is the sailing a schedule describes: carrier, end to end dates and
// every leg's ports, departure, voyage and vessel.
func identity(s schedule.Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s", s.SCAC, s.ETD, s.ETA)
	for _, l := range s.Legs {
		fmt.Fprintf(&b, "|%s>%s@%s/%s/%s",
			l.PointFrom.LocationCode, l.PointTo.LocationCode, l.ETD,
			l.Voyages.InternalVoyage, l.Transportations.Reference)
	}
	return b.String()
}
