package logging

import (
	"context"
	"io"
	"log/slog"
)

// SlogLogger adapts *slog.Logger to Logger. It backs the "text" and "json"
// log formats.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// newSlog returns a logger for the "text" or "json" format, or false for
// any other format. Entries below Info are dropped.
func newSlog(format string, w io.Writer) (*SlogLogger, bool) {
	switch format {
	case "text":
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, nil))), true
	case "json":
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil))), true
	default:
		return nil, false
	}
}

// Discard returns a Logger that drops every entry.
func Discard() *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

// With is how components tag their entries, e.g. With("module", "persons").
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
