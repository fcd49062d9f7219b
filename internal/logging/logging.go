// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs a text logger on stderr. Only warnings and errors are shown
// unless verbose is set, which enables debug output.
func Init(verbose bool) {
	slog.SetDefault(New(os.Stderr, verbose, false))
}

// InitJSON installs a JSON logger on stderr, used by the HTTP server.
func InitJSON(verbose bool) {
	slog.SetDefault(New(os.Stderr, verbose, true))
}

// New builds a logger writing to w.
func New(w io.Writer, verbose, json bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
