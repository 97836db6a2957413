package observe

import (
	"context"
	"time"
)

// OpFunc is the signature for observed operations.
type OpFunc func(ctx context.Context) ([]byte, error)

// Middleware wraps operations with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe OpFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an OpFunc with tracing, metrics, and logging. The returned
// OpFunc fails with ErrMissingOpName when meta carries no operation name,
// since spans and metrics would otherwise be unattributable.
func (m *Middleware) Wrap(meta OpMeta, fn OpFunc) OpFunc {
	if meta.Name == "" {
		return func(ctx context.Context) ([]byte, error) {
			return nil, ErrMissingOpName
		}
	}
	return func(ctx context.Context) ([]byte, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		result, err := fn(ctx)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordOperation(ctx, meta, duration, err)

		opLogger := m.logger.WithOp(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Error(ctx, "operation failed", fields...)
		} else {
			fields = append(fields, Field{Key: "bytes", Value: len(result)})
			opLogger.Info(ctx, "operation completed", fields...)
		}

		return result, err
	}
}

// RecordCacheLookup forwards a cache lookup outcome to the metrics
// backend, for callers that memoize outside an observed operation.
func (m *Middleware) RecordCacheLookup(ctx context.Context, computation string, hit bool) {
	m.metrics.RecordCacheLookup(ctx, computation, hit)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}

// NopMiddleware returns a Middleware whose components discard everything.
func NopMiddleware() *Middleware {
	return NewMiddleware(newNoopTracer(), &noopMetrics{}, &noopLogger{})
}
