// Package orchestrator queries carriers concurrently and gathers their
// schedules with per-carrier timeout, retry and failure isolation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/schedule"
	"github.com/schedulehub/p2p/internal/telemetry"
)

const tracerName = "github.com/schedulehub/p2p/internal/orchestrator"

// ErrPanic marks a carrier task that panicked. It is never retried.
var ErrPanic = errors.New("carrier task panicked")

// State is the lifecycle position of one carrier task.
type State int

const (
	StatePending State = iota
	StateRunning
	StateRetrying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds configuration for the orchestrator.
type Config struct {
	// Timeout bounds the first attempt of a task (default: 30 seconds).
	Timeout time.Duration

	// TimeoutIncrement is added to the timeout on every further attempt
	// (default: 10 seconds).
	TimeoutIncrement time.Duration

	// MaxAttempts is the total number of attempts per task (default: 3).
	MaxAttempts int

	// RetryDelay is the fixed pause between attempts (default: 500ms).
	RetryDelay time.Duration

	Logger zerolog.Logger

	// Metrics records attempt outcomes (optional).
	Metrics *telemetry.CarrierMetrics

	// Registry receives per-SCAC success and failure (optional).
	Registry *resilience.Registry
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		TimeoutIncrement: 10 * time.Second,
		MaxAttempts:      3,
		RetryDelay:       500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.TimeoutIncrement < 0 {
		c.TimeoutIncrement = 0
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// TaskResult is the recorded outcome of one carrier task.
type TaskResult struct {
	SCAC      schedule.SCAC
	Carrier   string
	State     State
	Attempts  int
	Duration  time.Duration
	Schedules []schedule.Schedule

	// Err is the last error of a failed task.
	Err error
}

// Absent reports whether the task contributed nothing.
func (r TaskResult) Absent() bool {
	return r.State != StateSucceeded
}

// Outcome is the gathered result of one scatter-gather run.
type Outcome struct {
	// Results holds one entry per carrier, in the order the carriers were given.
	Results []TaskResult

	// FailedCarriers lists the SCACs whose tasks failed, in the same order.
	FailedCarriers []schedule.SCAC

	HasErrors bool
}

// Orchestrator runs carrier tasks concurrently.
type Orchestrator struct {
	config Config
	logger zerolog.Logger
	tracer trace.Tracer
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		config: cfg,
		logger: cfg.Logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Run queries every carrier and waits for all of them. A failing carrier is
// recorded in the outcome and never cancels its siblings.
func (o *Orchestrator) Run(ctx context.Context, q schedule.Query, carriers []carrier.Carrier) Outcome {
	results := make([]TaskResult, len(carriers))

	var wg sync.WaitGroup
	for i, c := range carriers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.runTask(ctx, q, c)
		}()
	}
	wg.Wait()

	outcome := Outcome{Results: results}
	for _, r := range results {
		if r.State == StateFailed {
			outcome.FailedCarriers = append(outcome.FailedCarriers, r.SCAC)
		}
	}
	outcome.HasErrors = len(outcome.FailedCarriers) > 0

	o.logger.Debug().
		Int("carriers", len(carriers)).
		Int("failed", len(outcome.FailedCarriers)).
		Msg("scatter-gather completed")

	return outcome
}

func (o *Orchestrator) runTask(ctx context.Context, q schedule.Query, c carrier.Carrier) TaskResult {
	scac := c.SCAC()
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "carrier.schedules",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("carrier.scac", string(scac)),
			attribute.String("carrier.name", c.Name()),
		),
	)
	defer span.End()

	logger := o.logger.With().Str("scac", string(scac)).Str("carrier", c.Name()).Logger()

	result := TaskResult{SCAC: scac, Carrier: c.Name(), State: StatePending}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.config.RetryDelay), uint64(o.config.MaxAttempts-1)),
		ctx,
	)

	op := func() error {
		timeout := o.config.Timeout + time.Duration(result.Attempts)*o.config.TimeoutIncrement
		result.Attempts++
		result.State = StateRunning

		schedules, err := o.attempt(ctx, q, c, timeout)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result.Schedules = schedules
		return nil
	}

	notify := func(err error, wait time.Duration) {
		result.State = StateRetrying
		o.config.Metrics.RecordAttempt(string(scac), result.Attempts, StateRetrying.String())
		logger.Warn().
			Err(err).
			Int("attempt", result.Attempts).
			Dur("retry_in", wait).
			Str("state", result.State.String()).
			Msg("carrier attempt failed, retrying")
	}

	err := backoff.RetryNotify(op, bo, notify)
	result.Duration = time.Since(start)

	if err != nil {
		result.State = StateFailed
		result.Err = err
		result.Schedules = nil

		span.RecordError(err)
		span.SetStatus(codes.Error, "carrier failed")
		o.config.Metrics.RecordAttempt(string(scac), result.Attempts, StateFailed.String())
		if o.config.Registry != nil {
			o.config.Registry.RecordFailure(string(scac), err)
		}

		logger.Error().
			Err(err).
			Int("attempt", result.Attempts).
			Dur("duration", result.Duration).
			Str("state", result.State.String()).
			Msg("carrier task failed")
		return result
	}

	result.State = StateSucceeded
	span.SetAttributes(
		attribute.Int("carrier.attempts", result.Attempts),
		attribute.Int("carrier.schedules", len(result.Schedules)),
	)
	o.config.Metrics.RecordAttempt(string(scac), result.Attempts, StateSucceeded.String())
	if o.config.Registry != nil {
		o.config.Registry.RecordSuccess(string(scac))
	}

	logger.Debug().
		Int("attempt", result.Attempts).
		Int("schedules", len(result.Schedules)).
		Dur("duration", result.Duration).
		Str("state", result.State.String()).
		Msg("carrier task succeeded")
	return result
}

// attempt runs the fetch and adapt pipeline once. The lazy sequence is
// drained inside the attempt so adapter work counts against the timeout.
func (o *Orchestrator) attempt(ctx context.Context, q schedule.Query, c carrier.Carrier, timeout time.Duration) (schedules []schedule.Schedule, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			schedules = nil
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	seq, err := c.Schedules(ctx, q)
	if err != nil {
		return nil, err
	}

	for s := range seq {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrPanic) {
		return false
	}
	return fetch.IsRetryable(err)
}
