package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/protoforge/pkg/observability"
)

// capturedRecord builds a tracing logger over a JSON buffer, runs emit
// against it, and returns the decoded log record.
func capturedRecord(t *testing.T, cfg observability.Config, emit func(*slog.Logger)) map[string]any {
	t.Helper()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, cfg))

	emit(logger)

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

// sampledContext returns a context carrying a sampled span context with
// fixed trace and span IDs.
func sampledContext(t *testing.T) context.Context {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	cfg := observability.Config{
		ServiceName:    "test-svc",
		ServiceVersion: "1.2.3",
		Environment:    "test",
		Mode:           observability.ModeCLI,
	}

	record := capturedRecord(t, cfg, func(logger *slog.Logger) {
		logger.InfoContext(sampledContext(t), "test message")
	})

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "test-svc", record["service"])
	assert.Equal(t, "1.2.3", record["version"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

func TestTracingHandler_NoTraceContext(t *testing.T) {
	t.Parallel()

	cfg := observability.Config{
		ServiceName: "protoforge",
		Mode:        observability.ModeWatch,
	}

	record := capturedRecord(t, cfg, func(logger *slog.Logger) {
		logger.InfoContext(context.Background(), "no span")
	})

	// Without an active span there are no IDs to inject, and unset
	// version and env are omitted entirely.
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "span_id")
	assert.NotContains(t, record, "version")
	assert.NotContains(t, record, "env")

	assert.Equal(t, "protoforge", record["service"])
	assert.Equal(t, "watch", record["mode"])
}

func TestTracingHandler_WithGroup(t *testing.T) {
	t.Parallel()

	cfg := observability.Config{ServiceName: "protoforge", Mode: observability.ModeCLI}

	record := capturedRecord(t, cfg, func(logger *slog.Logger) {
		logger.WithGroup("build").InfoContext(context.Background(), "target done", slog.String("target", "python"))
	})

	// Service attrs stay at top level while grouped attrs nest.
	assert.Equal(t, "protoforge", record["service"])

	build, ok := record["build"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "python", build["target"])
}

func TestTracingHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	cfg := observability.Config{ServiceName: "protoforge", Mode: observability.ModeCLI}

	record := capturedRecord(t, cfg, func(logger *slog.Logger) {
		logger.With(slog.String("op", "generate")).InfoContext(context.Background(), "started")
	})

	assert.Equal(t, "generate", record["op"])
	assert.Equal(t, "protoforge", record["service"])
}
