package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the sigchain tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("sigchain")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDocumentSpan starts a span for a document operation such as
	// "save" or "load" against the named document.
	StartDocumentSpan(ctx context.Context, op, name string) (context.Context, trace.Span)

	// StartPublishSpan starts a span for a snapshot handoff.
	StartPublishSpan(ctx context.Context, snapshotID string, seq uint64) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartDocumentSpan starts a span for a document operation.
func (m *otelSpanManager) StartDocumentSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return StartDocumentSpan(ctx, op, name)
}

// StartPublishSpan starts a span for a snapshot handoff.
func (m *otelSpanManager) StartPublishSpan(ctx context.Context, snapshotID string, seq uint64) (context.Context, trace.Span) {
	return StartPublishSpan(ctx, snapshotID, seq)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// Convenience functions that operate on the global tracer.

// StartDocumentSpan starts a span for a document operation.
// Uses the global OTel tracer.
func StartDocumentSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sigchain.document."+op,
		trace.WithAttributes(
			attribute.String("document.name", name),
			attribute.String("document.op", op),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartPublishSpan starts a span for a snapshot handoff.
// Uses the global OTel tracer.
func StartPublishSpan(ctx context.Context, snapshotID string, seq uint64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sigchain.publish",
		trace.WithAttributes(
			attribute.String("snapshot.id", snapshotID),
			attribute.Int64("snapshot.seq", int64(seq)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
