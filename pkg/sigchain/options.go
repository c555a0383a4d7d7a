package sigchain

import (
	"log/slog"

	"github.com/randalmurphal/sigchain/pkg/sigchain/event"
	"github.com/randalmurphal/sigchain/pkg/sigchain/observability"
)

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger for edit, load and publish events.
// A nil logger disables logging. Default: nil.
//
// Example:
//
//	ed := sigchain.NewEditor(reg, sigchain.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics for edits, rejections, loads
// and publishes. Default: disabled.
//
// Metrics recorded:
//   - sigchain.edit.count: applied edits by op
//   - sigchain.edit.latency_ms: edit latency histogram
//   - sigchain.edit.rejections: refused edits by op and reason
//   - sigchain.publish.count: snapshot handoffs by outcome
//   - sigchain.document.loads: document loads by source and outcome
func WithMetrics(enabled bool) Option {
	return func(e *Editor) {
		if enabled {
			e.metrics = observability.NewMetricsRecorder()
		} else {
			e.metrics = observability.NoopMetrics{}
		}
	}
}

// WithSpans enables OpenTelemetry tracing of document and publish
// operations. Default: disabled.
func WithSpans(enabled bool) Option {
	return func(e *Editor) {
		if enabled {
			e.spans = observability.NewSpanManager()
		} else {
			e.spans = observability.NoopSpanManager{}
		}
	}
}

// WithPublisher sets the runtime that receives a snapshot after every
// applied edit. Default: none; snapshots are still built and available
// through Editor.Snapshot.
func WithPublisher(p Publisher) Option {
	return func(e *Editor) {
		e.publisher = p
	}
}

// WithEvents sets the bus that receives change notifications.
func WithEvents(bus event.Bus) Option {
	return func(e *Editor) {
		e.events = bus
	}
}

// WithFirstNodeID sets the first NodeID handed out. IDs below it are never
// allocated. Default: 100.
func WithFirstNodeID(id NodeID) Option {
	return func(e *Editor) {
		if id > NoNode {
			e.nextID = id
		}
	}
}
