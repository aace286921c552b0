// Package logging builds the application's slog loggers.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text logger on stdout.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// NewWithFile logs text to stdout and, when path is non-empty, JSON to a
// rotating file as well. The returned closer flushes the file sink.
func NewWithFile(level slog.Level, path string) (*slog.Logger, io.Closer) {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if path == "" {
		return slog.New(console), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}

	return newFanout(console, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})), file
}

func newFanout(handlers ...slog.Handler) *slog.Logger {
	return slog.New(fanout(handlers))
}

// fanout sends every record to each handler that accepts its level.
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
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
