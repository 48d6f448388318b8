package observability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// allowedPrefixes are the attribute namespaces that pass through the
// filter.
var allowedPrefixes = []string{
	"protoforge.",
	"error.",
	"http.",
	"build.",
	"target.",
	"source.",
	"invocation.",
	"fixer.",
	"report.",
	"watch.",
}

// allowedKeys are exact non-namespaced keys that pass the filter.
var allowedKeys = []string{
	"error",
	"jobs",
	"exit_code",
	"file_count",
	"failed_count",
}

// blockedPrefixes are attribute key prefixes that are always stripped.
var blockedPrefixes = []string{
	"user.",
}

// blockedKeys are exact attribute keys that are always stripped. Full argv
// and captured compiler output are unbounded-cardinality payloads that belong
// in the run report, not on exported spans.
var blockedKeys = map[string]bool{
	"email":         true,
	"argv":          true,
	"output":        true,
	"request.body":  true,
	"response.body": true,
}

// attributeFilter is a SpanProcessor that strips blocked and unknown
// attributes before handing spans to a delegate processor, keeping PII
// and high-cardinality data away from the exporter.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
}

// NewAttributeFilter returns a SpanProcessor enforcing the attribute
// allow-list. When logger is non-nil, every stripped key is logged as a
// warning (intended for dev mode).
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

// OnStart delegates to the wrapped processor.
func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a scrubbed view of the span. ReadOnlySpan
// attributes cannot be mutated in place.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&scrubbedSpan{ReadOnlySpan: s, filter: f})
}

// Shutdown delegates to the wrapped processor.
func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shut down span filter: %w", err)
	}

	return nil
}

// ForceFlush delegates to the wrapped processor.
func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("flush span filter: %w", err)
	}

	return nil
}

// allowed applies the block list first, then the allow list. Keys
// matching neither are stripped and logged.
func (f *attributeFilter) allowed(key string) bool {
	switch {
	case blockedKeys[key], hasAnyPrefix(key, blockedPrefixes):
	case slices.Contains(allowedKeys, key), hasAnyPrefix(key, allowedPrefixes):
		return true
	}

	if f.logger != nil {
		f.logger.Warn("span attribute stripped", "key", key)
	}

	return false
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// scrubbedSpan overlays a ReadOnlySpan, exposing only allowed attributes.
type scrubbedSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

// Attributes returns the span's attributes minus everything the filter
// strips.
func (s *scrubbedSpan) Attributes() []attribute.KeyValue {
	kept := slices.Clone(s.ReadOnlySpan.Attributes())

	return slices.DeleteFunc(kept, func(kv attribute.KeyValue) bool {
		return !s.filter.allowed(string(kv.Key))
	})
}
