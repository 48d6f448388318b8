package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/protoforge/pkg/observability"
)

// initNoExport runs Init without an OTLP endpoint and registers shutdown
// cleanup, returning the no-op providers.
func initNoExport(t *testing.T, mutate func(*observability.Config)) observability.Providers {
	t.Helper()

	cfg := observability.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	return providers
}

func TestInit_WithoutEndpoint(t *testing.T) {
	t.Parallel()

	providers := initNoExport(t, nil)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.NotNil(t, providers.Shutdown)

	// Spans still work in no-op mode, they are just never recorded.
	ctx, span := providers.Tracer.Start(context.Background(), "probe")
	span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
}

func TestInit_LoggerLogsWithContext(t *testing.T) {
	t.Parallel()

	providers := initNoExport(t, func(cfg *observability.Config) { cfg.LogJSON = true })

	require.NotNil(t, providers.Logger)

	// Must not panic without a span in the context.
	providers.Logger.InfoContext(context.Background(), "init test")
}

func TestInit_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestResource_Attributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "ci"
	cfg.Mode = observability.ModeWatch

	res, err := observability.ProbeResource(cfg)
	require.NoError(t, err)

	attrs := make(map[string]string, len(res.Attributes()))
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}

	assert.Equal(t, "protoforge", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "ci", attrs["deployment.environment"])
	assert.Equal(t, "watch", attrs["app.mode"])
}

func TestResource_OmitsUnsetAttributes(t *testing.T) {
	t.Parallel()

	res, err := observability.ProbeResource(observability.Config{ServiceName: "protoforge"})
	require.NoError(t, err)

	for _, kv := range res.Attributes() {
		assert.NotEqual(t, "service.version", string(kv.Key))
		assert.NotEqual(t, "deployment.environment", string(kv.Key))
	}
}

func TestSampler_Selection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*observability.Config)
	}{
		{name: "default_parent_based_always_on", mutate: nil},
		{name: "full_ratio", mutate: func(cfg *observability.Config) { cfg.SampleRatio = 1.0 }},
		{name: "debug_trace", mutate: func(cfg *observability.Config) { cfg.DebugTrace = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := observability.DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			assert.True(t, observability.ProbeSamplerSpan(cfg), "root span should be sampled")
		})
	}
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "authorization=Bearer tok", want: map[string]string{"authorization": "Bearer tok"}},
		{
			name:  "multiple",
			input: "authorization=Bearer tok,tenant=dev",
			want:  map[string]string{"authorization": "Bearer tok", "tenant": "dev"},
		},
		{name: "padded", input: " a = 1 , b = 2 ", want: map[string]string{"a": "1", "b": "2"}},
		{name: "no_equals", input: "invalid", want: nil},
		{name: "empty_key", input: "=value", want: nil},
		{name: "empty_key_among_valid", input: "=v1,tenant=dev", want: map[string]string{"tenant": "dev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.input))
		})
	}
}
