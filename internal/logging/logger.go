// Package logging defines the structured-logging interface used across the
// server together with slog and zap backed implementations.
package logging

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "person created", "person_id", id, "owner_id", owner)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds a Logger for the configured format: "text" or "json" use slog,
// "zap" uses a production zap encoder. Output goes to w.
func New(format string, w io.Writer) (Logger, error) {
	if l, ok := newSlog(format, w); ok {
		return l, nil
	}
	switch format {
	case "zap":
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			zapcore.InfoLevel,
		)
		return NewZapLogger(zap.New(core)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
