// Package logger configures structured logging for the indexer.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON slog.Logger writing to w; nil defaults to stdout.
// Progress counters and per-record warnings all flow through it; logging is
// advisory and never affects control flow.
func New(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}
