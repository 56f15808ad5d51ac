// Package worker keeps popular trade lanes warm in the product cache.
package worker

import (
	"time"

	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/schedule"
)

// WarmConfig holds configuration for the lane warming job.
type WarmConfig struct {
	// Lanes are searched on every run.
	// If empty, uses DefaultLanes.
	Lanes []config.Lane

	// Concurrency is the number of lanes searched at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the search of one lane. It must cover every
	// orchestrator attempt.
	// Default: 2 minutes
	Timeout time.Duration

	// SearchRange is the window in days searched for each lane.
	// Default: 28
	SearchRange int
}

// DefaultWarmConfig returns the default warming configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Lanes:       DefaultLanes(),
		Concurrency: 3,
		Timeout:     2 * time.Minute,
		SearchRange: schedule.DefaultSearchRange,
	}
}

// DefaultLanes returns the lanes warmed when none are configured.
func DefaultLanes() []config.Lane {
	lanes, _ := config.ParseLanes(config.DefaultLanes) //nolint:errcheck // constant input
	return lanes
}

func (c WarmConfig) withDefaults() WarmConfig {
	d := DefaultWarmConfig()
	if len(c.Lanes) == 0 {
		c.Lanes = d.Lanes
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.SearchRange <= 0 {
		c.SearchRange = d.SearchRange
	}
	return c
}
