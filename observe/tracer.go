package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OpMeta describes an observed operation: a dataset download, a scoring
// run, or a cache maintenance action.
type OpMeta struct {
	Name    string // Operation name (required), e.g. "load_parks"
	Dataset string // Source dataset resource ID (optional)
	Kind    string // Operation kind: download|score|cache (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: op.<kind>.<name> or op.<name>
func (m OpMeta) SpanName() string {
	if m.Kind != "" {
		return "op." + m.Kind + "." + m.Name
	}
	return "op." + m.Name
}

// Tracer wraps OpenTelemetry tracing with operation-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("op.name", meta.Name),
		attribute.Bool("op.error", false), // Updated in EndSpan on error
	}
	if meta.Dataset != "" {
		attrs = append(attrs, attribute.String("op.dataset", meta.Dataset))
	}
	if meta.Kind != "" {
		attrs = append(attrs, attribute.String("op.kind", meta.Kind))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
