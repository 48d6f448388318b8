// Package observability provides the build metric instruments and the
// Prometheus scrape endpoint served in watch mode.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBuildsTotal      = "protoforge.builds.total"
	metricBuildFailures    = "protoforge.build.failures.total"
	metricBuildDuration    = "protoforge.build.duration.seconds"
	metricInvocationsTotal = "protoforge.invocations.total"
	metricInflightCompiles = "protoforge.inflight.compiles"

	attrTarget = "target"
	attrKind   = "kind"
	attrStatus = "status"

	statusFailed = "failed"
)

// durationBucketBoundaries covers 10ms to 120s: a single protoc
// invocation is sub-second, a full multi-target regeneration can run
// for minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// BuildMetrics holds the OTel instruments recorded by the orchestrator.
type BuildMetrics struct {
	buildsTotal      metric.Int64Counter
	buildFailures    metric.Int64Counter
	buildDuration    metric.Float64Histogram
	invocationsTotal metric.Int64Counter
	inflightCompiles metric.Int64UpDownCounter
}

// NewBuildMetrics creates the build metric instruments from the given
// meter.
func NewBuildMetrics(mt metric.Meter) (*BuildMetrics, error) {
	b := newInstrumentBuilder(mt)

	bm := &BuildMetrics{
		buildsTotal:      b.int64Counter(metricBuildsTotal, "Total number of pipeline runs", "{run}"),
		buildFailures:    b.int64Counter(metricBuildFailures, "Total number of failed pipeline runs", "{run}"),
		buildDuration:    b.float64Histogram(metricBuildDuration, "Pipeline run duration in seconds", "s", durationBucketBoundaries...),
		invocationsTotal: b.int64Counter(metricInvocationsTotal, "Total number of external tool invocations", "{invocation}"),
		inflightCompiles: b.int64UpDownCounter(metricInflightCompiles, "Number of in-flight compile invocations", "{invocation}"),
	}

	buildErr := b.build()
	if buildErr != nil {
		return nil, buildErr
	}

	return bm, nil
}

// RecordRun records a completed pipeline run with its final status.
func (bm *BuildMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	bm.buildsTotal.Add(ctx, 1, attrs)
	bm.buildDuration.Record(ctx, duration.Seconds(), attrs)

	if status == statusFailed {
		bm.buildFailures.Add(ctx, 1)
	}
}

// RecordInvocation counts one external tool execution.
func (bm *BuildMetrics) RecordInvocation(ctx context.Context, target, kind, status string) {
	bm.invocationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTarget, target),
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	))
}

// TrackInflight increments the in-flight compile gauge and returns a
// function to decrement it.
func (bm *BuildMetrics) TrackInflight(ctx context.Context, target string) func() {
	attrs := metric.WithAttributes(attribute.String(attrTarget, target))
	bm.inflightCompiles.Add(ctx, 1, attrs)

	return func() {
		bm.inflightCompiles.Add(ctx, -1, attrs)
	}
}
