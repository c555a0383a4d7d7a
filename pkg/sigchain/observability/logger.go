// Package observability provides structured logging, metrics and tracing
// for the signal chain editor.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds editor session context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "8f14e45f-...")
//	enriched.Info("node added") // includes session_id
func EnrichLogger(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("session_id", sessionID))
}

// LogEdit logs a structural edit that was applied.
func LogEdit(logger *slog.Logger, op string, nodeID int64, chain int) {
	if logger == nil {
		return
	}
	logger.Debug("edit applied",
		slog.String("op", op),
		slog.Int64("node_id", nodeID),
		slog.Int("chain", chain),
	)
}

// LogRejected logs an edit that was refused without changing state.
func LogRejected(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Info("edit rejected",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

// LogResolutionFailure logs a descriptor replaced by a missing placeholder.
func LogResolutionFailure(logger *slog.Logger, descriptor string, nodeID int64, err error) {
	if logger == nil {
		return
	}
	logger.Warn("processor unavailable, using placeholder",
		slog.String("descriptor", descriptor),
		slog.Int64("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogLoad logs a completed document load.
func LogLoad(logger *slog.Logger, source string, chains, nodes, recovered int) {
	if logger == nil {
		return
	}
	logger.Info("document loaded",
		slog.String("source", source),
		slog.Int("chains", chains),
		slog.Int("nodes", nodes),
		slog.Int("recovered_records", recovered),
	)
}

// LogLoadError logs a document load that was aborted.
func LogLoadError(logger *slog.Logger, source string, err error) {
	if logger == nil {
		return
	}
	logger.Error("document load failed",
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
}

// LogPublish logs a snapshot accepted by the runtime.
func LogPublish(logger *slog.Logger, snapshotID string, seq uint64, steps int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot published",
		slog.String("snapshot_id", snapshotID),
		slog.Uint64("seq", seq),
		slog.Int("steps", steps),
	)
}

// LogPublishBusy logs a snapshot the runtime refused. The publish is
// retried on the next edit or by Republish.
func LogPublishBusy(logger *slog.Logger, snapshotID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot publish deferred",
		slog.String("snapshot_id", snapshotID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
