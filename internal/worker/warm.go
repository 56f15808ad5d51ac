package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/schedule"
	"github.com/schedulehub/p2p/internal/search"
)

// Searcher runs one schedule search.
type Searcher interface {
	Search(ctx context.Context, q schedule.Query) (*search.Response, error)
}

// WarmJob searches configured lanes so their products sit in cache.
type WarmJob struct {
	config   WarmConfig
	searcher Searcher
	logger   zerolog.Logger
	now      func() time.Time

	metrics *WarmMetrics
}

// WarmMetrics tracks warming statistics across runs.
type WarmMetrics struct {
	mu sync.RWMutex

	TotalRuns   int64
	Warmed      int64
	AlreadyWarm int64
	Partial     int64
	Failed      int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config   WarmConfig
	Searcher Searcher
	Logger   zerolog.Logger

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// NewWarmJob creates a lane warming job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &WarmJob{
		config:   cfg.Config.withDefaults(),
		searcher: cfg.Searcher,
		logger:   cfg.Logger,
		now:      now,
		metrics:  &WarmMetrics{},
	}
}

// LaneOutcome is how a lane search ended.
type LaneOutcome string

const (
	// LaneWarmed means a fresh product was assembled and cached.
	LaneWarmed LaneOutcome = "warmed"
	// LaneAlreadyWarm means the product was served from cache.
	LaneAlreadyWarm LaneOutcome = "already_warm"
	// LanePartial means some carriers failed, so nothing was cached.
	LanePartial LaneOutcome = "partial"
	// LaneFailed means the search itself failed.
	LaneFailed LaneOutcome = "failed"
)

// LaneResult is the outcome of one lane.
type LaneResult struct {
	Lane           config.Lane
	Outcome        LaneOutcome
	Schedules      int
	FailedCarriers []schedule.SCAC
	Error          string
}

// WarmResult contains the result of one run.
type WarmResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	TotalLanes  int
	Warmed      int
	AlreadyWarm int
	Partial     int
	Failed      int

	Lanes []LaneResult
}

// Healthy reports whether at least one lane produced a complete product.
func (r *WarmResult) Healthy() bool {
	return r.Warmed+r.AlreadyWarm > 0
}

// Run warms every configured lane.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	return j.run(ctx, j.config.Lanes)
}

// RunLanes warms the given lanes instead of the configured ones.
func (j *WarmJob) RunLanes(ctx context.Context, lanes []config.Lane) *WarmResult {
	if len(lanes) == 0 {
		lanes = j.config.Lanes
	}
	return j.run(ctx, lanes)
}

func (j *WarmJob) run(ctx context.Context, lanes []config.Lane) *WarmResult {
	startTime := time.Now()
	result := &WarmResult{
		StartTime:  startTime,
		TotalLanes: len(lanes),
	}

	j.logger.Info().
		Int("lanes", len(lanes)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting lane warming")

	lanesChan := make(chan config.Lane, len(lanes))
	resultsChan := make(chan LaneResult, len(lanes))

	var wg sync.WaitGroup
	for range j.config.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, lanesChan, resultsChan)
		}()
	}

	for _, l := range lanes {
		lanesChan <- l
	}
	close(lanesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for lr := range resultsChan {
		switch lr.Outcome {
		case LaneWarmed:
			result.Warmed++
		case LaneAlreadyWarm:
			result.AlreadyWarm++
		case LanePartial:
			result.Partial++
		default:
			result.Failed++
		}
		result.Lanes = append(result.Lanes, lr)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("warmed", result.Warmed).
		Int("already_warm", result.AlreadyWarm).
		Int("partial", result.Partial).
		Int("failed", result.Failed).
		Msg("lane warming completed")

	return result
}

func (j *WarmJob) warmWorker(ctx context.Context, lanes <-chan config.Lane, results chan<- LaneResult) {
	for lane := range lanes {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warmLane(ctx, lane)
		}
	}
}

func (j *WarmJob) warmLane(ctx context.Context, lane config.Lane) LaneResult {
	result := LaneResult{Lane: lane}

	laneCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	now := j.now().UTC()
	q := schedule.Query{
		Origin:      lane.Origin,
		Destination: lane.Destination,
		StartDate:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		DateType:    schedule.DateTypeDeparture,
		SearchRange: j.config.SearchRange,
	}

	resp, err := j.searcher.Search(laneCtx, q)
	switch {
	case err != nil:
		result.Outcome = LaneFailed
		result.Error = err.Error()
		j.logger.Warn().Err(err).Str("lane", lane.String()).Msg("lane search failed")
	case resp.Cached:
		result.Outcome = LaneAlreadyWarm
		result.Schedules = resp.Count
	case len(resp.FailedCarriers) > 0:
		result.Outcome = LanePartial
		result.Schedules = resp.Count
		result.FailedCarriers = resp.FailedCarriers
		j.logger.Warn().
			Str("lane", lane.String()).
			Str("failed_carriers", schedule.JoinSCACs(resp.FailedCarriers)).
			Msg("lane only partially answered, product not cached")
	default:
		result.Outcome = LaneWarmed
		result.Schedules = resp.Count
	}

	return result
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.Warmed += int64(result.Warmed)
	j.metrics.AlreadyWarm += int64(result.AlreadyWarm)
	j.metrics.Partial += int64(result.Partial)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
}

// MetricsSnapshot returns a copy of the current metrics as a map.
func (j *WarmJob) MetricsSnapshot() map[string]any {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return map[string]any{
		"total_runs":        j.metrics.TotalRuns,
		"warmed":            j.metrics.Warmed,
		"already_warm":      j.metrics.AlreadyWarm,
		"partial":           j.metrics.Partial,
		"failed":            j.metrics.Failed,
		"last_run_at":       j.metrics.LastRunAt,
		"last_run_duration": j.metrics.LastRunDuration.String(),
	}
}
