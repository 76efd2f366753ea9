// Package logging builds the collector's slog logger: records go to stderr and,
// when configured, are appended to an application log file that accumulates
// across runs.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Options configures New.
type Options struct {
	// AppLog is the append-only log file path; empty disables it.
	AppLog string
	// Stderr receives console output; nil means os.Stderr.
	Stderr io.Writer
	// JSON selects the JSON handler for console output instead of text.
	JSON bool
	Level slog.Level
}

// New returns a logger and a close function that releases the app log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}

	var console slog.Handler
	if opts.JSON {
		console = slog.NewJSONHandler(stderr, hopts)
	} else {
		console = slog.NewTextHandler(stderr, hopts)
	}

	if opts.AppLog == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	f, err := os.OpenFile(opts.AppLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open app log: %w", err)
	}
	h := fanout{console, slog.NewTextHandler(f, hopts)}
	return slog.New(h), f.Close, nil
}

// fanout sends every record to all of its handlers.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
