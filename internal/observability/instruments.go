package observability

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instrumentBuilder collects instrument constructor failures so a batch
// of instruments can be created with a single error check at the end.
type instrumentBuilder struct {
	meter metric.Meter
	errs  []error
}

func newInstrumentBuilder(mt metric.Meter) *instrumentBuilder {
	return &instrumentBuilder{meter: mt}
}

func (b *instrumentBuilder) int64Counter(name, desc, unit string) metric.Int64Counter {
	counter, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.record(name, err)

	return counter
}

// float64Histogram creates a histogram, with explicit bucket boundaries
// when bounds are given.
func (b *instrumentBuilder) float64Histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	histogram, err := b.meter.Float64Histogram(name, opts...)
	b.record(name, err)

	return histogram
}

func (b *instrumentBuilder) int64UpDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	counter, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.record(name, err)

	return counter
}

func (b *instrumentBuilder) record(name string, err error) {
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("create %s: %w", name, err))
	}
}

// build returns the joined error of every failed instrument, or nil when
// all constructors succeeded.
func (b *instrumentBuilder) build() error {
	return errors.Join(b.errs...)
}
