package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/schedulehub/p2p/internal/telemetry"

// CarrierMetrics holds metrics for outbound carrier calls and the cache.
// A nil *CarrierMetrics records nothing.
type CarrierMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	attemptTotal    metric.Int64Counter
	cacheHit        metric.Int64Counter
	cacheMiss       metric.Int64Counter
	poolGrowth      metric.Int64Counter
}

// NewCarrierMetrics creates the carrier and cache instruments on the global meter.
func NewCarrierMetrics() (*CarrierMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"carrier.request.duration",
		metric.WithDescription("Duration of carrier requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"carrier.request.total",
		metric.WithDescription("Total number of carrier requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	attemptTotal, err := meter.Int64Counter(
		"carrier.task.attempt",
		metric.WithDescription("Carrier task attempts by final state"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"cache.hit",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"cache.miss",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	poolGrowth, err := meter.Int64Counter(
		"http.client.pool.growth",
		metric.WithDescription("Times the outbound connection pool limits were raised"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &CarrierMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		attemptTotal:    attemptTotal,
		cacheHit:        cacheHit,
		cacheMiss:       cacheMiss,
		poolGrowth:      poolGrowth,
	}, nil
}

// RecordRequest records one outbound carrier request.
func (m *CarrierMetrics) RecordRequest(carrier, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("carrier.name", carrier),
		attribute.String("carrier.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Detached from the request so cancelled calls are still counted.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAttempt records the state a carrier task attempt ended in.
func (m *CarrierMetrics) RecordAttempt(scac string, attempt int, state string) {
	if m == nil {
		return
	}
	m.attemptTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("carrier.scac", scac),
		attribute.String("carrier.attempt", strconv.Itoa(attempt)),
		attribute.String("carrier.state", state),
	))
}

// RecordCacheHit records a cache hit in namespace.
func (m *CarrierMetrics) RecordCacheHit(namespace string) {
	if m == nil {
		return
	}
	m.cacheHit.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cache.namespace", namespace)))
}

// RecordCacheMiss records a cache miss in namespace.
func (m *CarrierMetrics) RecordCacheMiss(namespace string) {
	if m == nil {
		return
	}
	m.cacheMiss.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cache.namespace", namespace)))
}

// RecordPoolGrowth records the per-host connection limit after a growth step.
func (m *CarrierMetrics) RecordPoolGrowth(maxConnsPerHost int) {
	if m == nil {
		return
	}
	m.poolGrowth.Add(context.Background(), 1, metric.WithAttributes(attribute.Int("pool.max_conns_per_host", maxConnsPerHost)))
}
