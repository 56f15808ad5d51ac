// Package search answers schedule queries from the product cache or by
// querying carriers.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/assembler"
	"github.com/schedulehub/p2p/internal/cache"
	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/orchestrator"
	"github.com/schedulehub/p2p/internal/schedule"
)

// ErrInvalidQuery wraps every query validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// Response is the serialized answer to one search.
type Response struct {
	Body           []byte
	Count          int
	FailedCarriers []schedule.SCAC

	// Cached is true when the product came from the product cache.
	Cached bool
}

// Config holds configuration for the search service.
type Config struct {
	// Carriers are the configured carrier clients (required).
	Carriers *carrier.Set

	// Orchestrator runs the carrier tasks (required).
	Orchestrator *orchestrator.Orchestrator

	// Assembler builds the product (required).
	Assembler *assembler.Assembler

	// Cache is consulted for finished products (optional).
	Cache *cache.Store

	Logger zerolog.Logger
}

// Service answers schedule searches.
type Service struct {
	carriers     *carrier.Set
	orchestrator *orchestrator.Orchestrator
	assembler    *assembler.Assembler
	cache        *cache.Store
	logger       zerolog.Logger
}

// NewService creates a new search service.
func NewService(cfg Config) *Service {
	return &Service{
		carriers:     cfg.Carriers,
		orchestrator: cfg.Orchestrator,
		assembler:    cfg.Assembler,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
	}
}

// Carriers returns the configured SCACs.
func (s *Service) Carriers() []schedule.SCAC {
	return s.carriers.SCACs()
}

// Search returns the product for q. Carrier failures never fail the search;
// they are reported in FailedCarriers.
func (s *Service) Search(ctx context.Context, q schedule.Query) (*Response, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	if resp, ok := s.cached(ctx, q); ok {
		return resp, nil
	}

	selected, missing := s.carriers.Select(q.Carriers(s.carriers.SCACs()))
	if len(missing) > 0 {
		s.logger.Warn().
			Str("scacs", schedule.JoinSCACs(missing)).
			Msg("requested carriers are not configured")
	}

	outcome := s.orchestrator.Run(ctx, q, selected)
	if len(missing) > 0 {
		outcome.FailedCarriers = append(outcome.FailedCarriers, missing...)
		outcome.HasErrors = true
	}

	result, err := s.assembler.Assemble(q, outcome)
	if err != nil {
		return nil, fmt.Errorf("assembling product: %w", err)
	}

	return &Response{
		Body:           result.Body,
		Count:          result.Count,
		FailedCarriers: result.FailedCarriers,
	}, nil
}

// cached treats an unreachable cache as a miss.
func (s *Service) cached(ctx context.Context, q schedule.Query) (*Response, bool) {
	var entry assembler.Entry
	found, err := s.cache.Get(ctx, cache.NamespaceProduct, assembler.ProductKey(q), &entry)
	if err != nil {
		s.logger.Warn().Err(err).Msg("product cache lookup failed, querying carriers")
		return nil, false
	}
	if !found {
		return nil, false
	}

	s.logger.Debug().
		Str("origin", q.Origin).
		Str("destination", q.Destination).
		Int("schedules", entry.Count).
		Msg("product served from cache")
	return &Response{Body: entry.Body, Count: entry.Count, Cached: true}, true
}
