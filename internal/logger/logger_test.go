package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if tid := TraceID(ctx); tid != "" {
		t.Errorf("expected empty trace id, got %q", tid)
	}

	ctx = WithTraceID(ctx, "test-trace-123")
	if tid := TraceID(ctx); tid != "test-trace-123" {
		t.Errorf("expected 'test-trace-123', got %q", tid)
	}
}

func TestGenerateTraceID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	tid := GenerateTraceID("BTC-USD/1m", ts)

	if !strings.HasPrefix(tid, "BTC-USD/1m-") {
		t.Errorf("expected trace id to start with the key, got %s", tid)
	}
	if !strings.HasSuffix(tid, "123456789") {
		t.Errorf("expected trace id to end with nanoseconds, got %s", tid)
	}
}

func TestTraceAttrs(t *testing.T) {
	if attrs := TraceAttrs(context.Background()); attrs != nil {
		t.Errorf("expected nil attrs when no trace id, got %v", attrs)
	}
	if attrs := TraceAttrs(WithTraceID(context.Background(), "abc")); len(attrs) != 1 {
		t.Fatalf("expected one attr, got %v", attrs)
	}
}

func TestLogWithTrace(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	slog.SetDefault(New(&buf, "tradingbot", slog.LevelInfo))

	ctx := WithTraceID(context.Background(), "tick-1")
	LogWithTrace(ctx, slog.LevelInfo, "decision", "action", "BUY")
	LogWithTrace(ctx, slog.LevelDebug, "filtered")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if rec["trace_id"] != "tick-1" || rec["action"] != "BUY" || rec["service"] != "tradingbot" {
		t.Errorf("unexpected record %v", rec)
	}
}
