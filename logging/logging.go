// Package logging constructs the shared slog logger. All output goes to
// stderr: stdout is reserved for ceremony results.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text logger writing to stderr. Debug enables the debug
// level, otherwise info and above.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Discard returns a logger that drops everything. Used by components when
// the caller does not supply a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
