// Package logging builds the process logger: a log/slog handler exposed
// through Temporal's key-value Logger interface, so collector code logs the
// same way inside an activity and from the CLI or HTTP server.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	tlog "go.temporal.io/sdk/log"
)

// New returns a logger writing to stderr. level is debug, info, warn or
// error (default info); format is json or text (default json).
func New(level, format string) tlog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) tlog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return tlog.NewStructuredLogger(slog.New(handler))
}

// Discard returns a logger that drops everything.
func Discard() tlog.Logger {
	return NewWithWriter(io.Discard, "error", "text")
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
