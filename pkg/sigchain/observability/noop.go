package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordEdit does nothing.
func (NoopMetrics) RecordEdit(_ context.Context, _ string, _ time.Duration) {}

// RecordRejection does nothing.
func (NoopMetrics) RecordRejection(_ context.Context, _, _ string) {}

// RecordPublish does nothing.
func (NoopMetrics) RecordPublish(_ context.Context, _ bool, _ int) {}

// RecordLoad does nothing.
func (NoopMetrics) RecordLoad(_ context.Context, _ string, _, _ int, _ error) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartDocumentSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDocumentSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartPublishSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartPublishSpan(ctx context.Context, _ string, _ uint64) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
