package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/config"
)

// Job types carried in the job_type field.
const (
	JobWarmLanes   = "warm_lanes"
	JobHealthCheck = "health_check"
	JobPruneCache  = "prune_cache"
)

// Job errors.
var (
	// ErrUnknownJob is returned for unrecognised job types. Such messages
	// are acknowledged so they are not redelivered.
	ErrUnknownJob = errors.New("unknown job type")

	// ErrMalformedJob is returned when a message cannot be decoded.
	ErrMalformedJob = errors.New("malformed job message")
)

// JobMessage is the payload of a worker message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Lanes overrides the configured lanes for warm_lanes, as
	// "ORIGIN-DESTINATION" strings.
	Lanes []string `json:"lanes,omitempty"`
}

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Pruner removes expired cache entries.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// DispatcherConfig holds configuration for a Dispatcher.
type DispatcherConfig struct {
	Warm   *WarmJob
	Cache  Pinger
	Pruner Pruner
	Logger zerolog.Logger

	// HealthTimeout bounds the health check (default: 30 seconds).
	HealthTimeout time.Duration
}

// Dispatcher decodes job messages and runs them.
type Dispatcher struct {
	warm          *WarmJob
	cache         Pinger
	pruner        Pruner
	logger        zerolog.Logger
	healthTimeout time.Duration
}

// NewDispatcher creates a job dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.HealthTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		warm:          cfg.Warm,
		cache:         cfg.Cache,
		pruner:        cfg.Pruner,
		logger:        cfg.Logger,
		healthTimeout: timeout,
	}
}

// Handle runs the job encoded in data.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}

	switch msg.JobType {
	case JobWarmLanes:
		return d.handleWarmLanes(ctx, msg)
	case JobHealthCheck:
		return d.handleHealthCheck(ctx)
	case JobPruneCache:
		return d.handlePruneCache(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (d *Dispatcher) handleWarmLanes(ctx context.Context, msg JobMessage) error {
	var lanes []config.Lane
	for _, raw := range msg.Lanes {
		parsed, err := config.ParseLanes(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedJob, err)
		}
		lanes = append(lanes, parsed...)
	}

	result := d.warm.RunLanes(ctx, lanes)

	// Partial lanes are upstream trouble; only outright search failures
	// outnumbering complete lanes warrant redelivery.
	if result.Failed > result.Warmed+result.AlreadyWarm {
		return fmt.Errorf("too many lane failures: %d/%d", result.Failed, result.TotalLanes)
	}
	return nil
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	ctx, cancel := context.WithTimeout(ctx, d.healthTimeout)
	defer cancel()

	if d.cache != nil {
		if err := d.cache.Ping(ctx); err != nil {
			return fmt.Errorf("health check: cache: %w", err)
		}
	}

	lanes := d.warm.config.Lanes
	if len(lanes) == 0 {
		return nil
	}

	result := d.warm.RunLanes(ctx, lanes[:1])
	if !result.Healthy() {
		return fmt.Errorf("health check: lane %s not answered", lanes[0])
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}

func (d *Dispatcher) handlePruneCache(ctx context.Context) error {
	if d.pruner == nil {
		return nil
	}
	n, err := d.pruner.Prune(ctx)
	if err != nil {
		return err
	}
	d.logger.Info().Int64("removed", n).Msg("expired cache entries pruned")
	return nil
}
