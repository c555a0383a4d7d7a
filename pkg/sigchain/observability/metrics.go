package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records editor metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEdit records an applied structural edit and its duration.
	RecordEdit(ctx context.Context, op string, duration time.Duration)

	// RecordRejection records an edit refused without changing state.
	// reason is a short classification such as "locked" or "not_found".
	RecordRejection(ctx context.Context, op, reason string)

	// RecordPublish records a snapshot handoff to the runtime.
	RecordPublish(ctx context.Context, accepted bool, steps int)

	// RecordLoad records a document load with the number of nodes built
	// and the number of records recovered as placeholders or rejected.
	RecordLoad(ctx context.Context, source string, nodes, recovered int, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	edits        metric.Int64Counter
	editLatency  metric.Float64Histogram
	rejections   metric.Int64Counter
	publishes    metric.Int64Counter
	publishSteps metric.Int64Histogram
	loads        metric.Int64Counter
	loadNodes    metric.Int64Histogram
	recovered    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("sigchain")

	edits, err := meter.Int64Counter("sigchain.edit.count",
		metric.WithDescription("Number of structural edits applied"),
	)
	if err != nil {
		return nil, err
	}

	editLatency, err := meter.Float64Histogram("sigchain.edit.latency_ms",
		metric.WithDescription("Structural edit latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("sigchain.edit.rejections",
		metric.WithDescription("Number of edits refused without state change"),
	)
	if err != nil {
		return nil, err
	}

	publishes, err := meter.Int64Counter("sigchain.publish.count",
		metric.WithDescription("Number of snapshot handoffs to the runtime"),
	)
	if err != nil {
		return nil, err
	}

	publishSteps, err := meter.Int64Histogram("sigchain.publish.steps",
		metric.WithDescription("Number of steps in published snapshots"),
	)
	if err != nil {
		return nil, err
	}

	loads, err := meter.Int64Counter("sigchain.document.loads",
		metric.WithDescription("Number of document loads"),
	)
	if err != nil {
		return nil, err
	}

	loadNodes, err := meter.Int64Histogram("sigchain.document.nodes",
		metric.WithDescription("Number of nodes built per document load"),
	)
	if err != nil {
		return nil, err
	}

	recovered, err := meter.Int64Counter("sigchain.document.recovered_records",
		metric.WithDescription("Records replaced by placeholders or rejected on load"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		edits:        edits,
		editLatency:  editLatency,
		rejections:   rejections,
		publishes:    publishes,
		publishSteps: publishSteps,
		loads:        loads,
		loadNodes:    loadNodes,
		recovered:    recovered,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEdit records an applied edit.
func (m *otelMetrics) RecordEdit(ctx context.Context, op string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.edits.Add(ctx, 1, attrs)
	m.editLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordRejection records a refused edit.
func (m *otelMetrics) RecordRejection(ctx context.Context, op, reason string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("reason", reason),
	))
}

// RecordPublish records a snapshot handoff.
func (m *otelMetrics) RecordPublish(ctx context.Context, accepted bool, steps int) {
	attrs := metric.WithAttributes(attribute.Bool("accepted", accepted))
	m.publishes.Add(ctx, 1, attrs)
	if accepted {
		m.publishSteps.Record(ctx, int64(steps))
	}
}

// RecordLoad records a document load.
func (m *otelMetrics) RecordLoad(ctx context.Context, source string, nodes, recovered int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("success", err == nil),
	)
	m.loads.Add(ctx, 1, attrs)
	if err != nil {
		return
	}
	m.loadNodes.Record(ctx, int64(nodes), attrs)
	if recovered > 0 {
		m.recovered.Add(ctx, int64(recovered), attrs)
	}
}
