package logger

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Field is a structured log attribute.
type Field struct {
	Key   string
	Value any
}

// Logger is the logging surface services depend on.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// AppLogger implements Logger on top of slog. In production the records are
// bridged to the OTel log pipeline; in development they go to stderr as text.
type AppLogger struct {
	log *slog.Logger
}

func NewLogger(appEnv string) *AppLogger {
	var handler slog.Handler
	switch appEnv {
	case "production", "staging":
		handler = otelslog.NewHandler("partymatch")
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return &AppLogger{log: slog.New(handler)}
}

func (l *AppLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log.DebugContext(ctx, msg, attrs(fields)...)
}

func (l *AppLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log.InfoContext(ctx, msg, attrs(fields)...)
}

func (l *AppLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log.WarnContext(ctx, msg, attrs(fields)...)
}

func (l *AppLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log.ErrorContext(ctx, msg, attrs(fields)...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}
