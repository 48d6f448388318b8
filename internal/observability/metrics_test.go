package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/protoforge/internal/observability"
	pkgobservability "github.com/Sumatoshi-tech/protoforge/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.BuildMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	bm, err := observability.NewBuildMetrics(meter)
	require.NoError(t, err)

	return bm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func TestBuildMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	bm, reader := setupTestMeter(t)
	ctx := context.Background()

	bm.RecordRun(ctx, "ok", 800*time.Millisecond)

	rm := collectMetrics(t, reader)

	runsTotal := findMetric(rm, "protoforge.builds.total")
	require.NotNil(t, runsTotal, "protoforge.builds.total metric not found")

	duration := findMetric(rm, "protoforge.build.duration.seconds")
	require.NotNil(t, duration, "protoforge.build.duration.seconds metric not found")

	// A successful run does not count as a failure.
	assert.Nil(t, findMetric(rm, "protoforge.build.failures.total"))
}

func TestBuildMetrics_RecordRunFailure(t *testing.T) {
	t.Parallel()

	bm, reader := setupTestMeter(t)
	ctx := context.Background()

	bm.RecordRun(ctx, "failed", time.Second)

	rm := collectMetrics(t, reader)

	failures := findMetric(rm, "protoforge.build.failures.total")
	require.NotNil(t, failures, "protoforge.build.failures.total metric not found")
}

func TestBuildMetrics_RecordInvocationAttributes(t *testing.T) {
	t.Parallel()

	bm, reader := setupTestMeter(t)
	ctx := context.Background()

	bm.RecordInvocation(ctx, "python", "compile", "ok")

	rm := collectMetrics(t, reader)

	invocations := findMetric(rm, "protoforge.invocations.total")
	require.NotNil(t, invocations)

	sum, ok := invocations.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data type")
	require.Len(t, sum.DataPoints, 1)

	attrs := sum.DataPoints[0].Attributes
	target, _ := attrs.Value(attribute.Key("target"))
	assert.Equal(t, "python", target.AsString())

	kind, _ := attrs.Value(attribute.Key("kind"))
	assert.Equal(t, "compile", kind.AsString())
}

func TestBuildMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	bm, reader := setupTestMeter(t)
	ctx := context.Background()

	done := bm.TrackInflight(ctx, "typescript")

	rm := collectMetrics(t, reader)

	inflight := findMetric(rm, "protoforge.inflight.compiles")
	require.NotNil(t, inflight, "protoforge.inflight.compiles metric not found")

	done()

	rm = collectMetrics(t, reader)
	inflight = findMetric(rm, "protoforge.inflight.compiles")
	require.NotNil(t, inflight)
}

func TestBuildMetrics_HistogramBuckets(t *testing.T) {
	t.Parallel()

	bm, reader := setupTestMeter(t)
	ctx := context.Background()

	bm.RecordRun(ctx, "ok", time.Second)

	rm := collectMetrics(t, reader)

	duration := findMetric(rm, "protoforge.build.duration.seconds")
	require.NotNil(t, duration)

	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram data type")
	require.NotEmpty(t, hist.DataPoints)

	expectedBounds := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
	assert.Equal(t, expectedBounds, hist.DataPoints[0].Bounds)
}

func TestNewBuildMetrics_NoopMeter(t *testing.T) {
	t.Parallel()

	providers, err := pkgobservability.Init(pkgobservability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	bm, err := observability.NewBuildMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotNil(t, bm)

	// Recording against noop instruments must not panic.
	bm.RecordRun(context.Background(), "ok", time.Millisecond)
	bm.RecordInvocation(context.Background(), "python", "fix", "ok")
	bm.TrackInflight(context.Background(), "python")()
}
