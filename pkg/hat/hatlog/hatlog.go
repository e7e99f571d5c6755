// Package hatlog sets up the structured loggers shared by hatd's daemon
// front and runner, following the handler-selection pattern in
// cmd/copilot/commands/serve.go: a slog.Handler chosen by output format,
// level raised under --verbose.
package hatlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Options controls handler construction.
type Options struct {
	Format  string // "text" or "json"
	Verbose bool
}

// New builds a stdout-backed logger from Options.
func New(opts Options) *slog.Logger {
	return slog.New(handlerFor(os.Stdout, opts))
}

// NewWithFile builds a logger that writes to both stdout and the given
// file-backed writer, the "daemon operational log" side-sink described in
// SPEC_FULL.md §7. Write failures to either sink do not panic the caller.
func NewWithFile(fileWriter io.Writer, opts Options) *slog.Logger {
	return slog.New(fanoutHandler{
		handlerFor(os.Stdout, opts),
		handlerFor(fileWriter, opts),
	})
}

func handlerFor(w io.Writer, opts Options) slog.Handler {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if opts.Format == "text" {
		return slog.NewTextHandler(w, hopts)
	}
	return slog.NewJSONHandler(w, hopts)
}

// fanoutHandler dispatches every record to each wrapped handler in turn,
// since log/slog has no built-in multi-writer handler.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

// OpenDaemonLog opens (creating if necessary) the daemon's operational log
// file for append, per spec.md §6's /var/log/hatd/daemon.log.
func OpenDaemonLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("hatlog: open daemon log %s: %w", path, err)
	}
	return f, nil
}
