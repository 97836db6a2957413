package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records operation and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records a completed operation with duration and error status.
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordCacheLookup records a cache lookup outcome for a computation.
	RecordCacheLookup(ctx context.Context, computation string, hit bool)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheLookups metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"op.total",
		metric.WithDescription("Total number of operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"op.errors",
		metric.WithDescription("Total number of operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"op.duration_ms",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Cache lookups by computation and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		cacheLookups: cacheLookups,
	}, nil
}

// RecordOperation records metrics for a completed operation.
func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op.name", meta.Name),
	}
	if meta.Kind != "" {
		attrs = append(attrs, attribute.String("op.kind", meta.Kind))
	}

	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordCacheLookup records a hit or miss for a memoized computation.
func (m *metricsImpl) RecordCacheLookup(ctx context.Context, computation string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("computation", computation),
		attribute.Bool("hit", hit),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordCacheLookup(ctx context.Context, computation string, hit bool) {}
