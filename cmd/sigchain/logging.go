package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// initLogging configures the global slog default with the given level and
// format and returns a logger scoped to component. If w is nil, os.Stderr
// is used. Format must be "text" or "json".
func initLogging(level slog.Level, format string, w io.Writer, component string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
	return slog.Default().With(slog.String("component", component))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
