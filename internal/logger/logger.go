// Package logger sets up structured JSON logging with log/slog and carries
// a per-tick trace id through context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Init creates the service logger on stdout and installs it as the slog
// default.
func Init(service string, level slog.Level) *slog.Logger {
	logger := New(os.Stdout, service, level)
	slog.SetDefault(logger)
	return logger
}

// New creates a JSON logger writing to w with the service name attached.
func New(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", service))
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unknown values give info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID creates a trace ID "{key}-{unixNano}", e.g. the agent
// key and the tick time.
func GenerateTraceID(key string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", key, ts.UnixNano())
}

// TraceAttrs returns the trace_id attribute from ctx, nil if unset.
// Usage: slog.Info("msg", logger.TraceAttrs(ctx)...)
func TraceAttrs(ctx context.Context) []any {
	tid := TraceID(ctx)
	if tid == "" {
		return nil
	}
	return []any{slog.String("trace_id", tid)}
}

// LogWithTrace logs msg on the default logger with the trace id from ctx.
func LogWithTrace(ctx context.Context, level slog.Level, msg string, args ...any) {
	slog.Default().Log(ctx, level, msg, append(TraceAttrs(ctx), args...)...)
}
