// Package observability wires OpenTelemetry tracing, metrics, and structured
// logging for protoforge, covering both one-shot CLI runs and the
// long-running watch loop.
package observability

import (
	"log/slog"
	"time"
)

// AppMode identifies how the binary was launched. It is attached to the
// OTel resource so backends can split one-shot runs from watch sessions.
type AppMode string

const (
	// ModeCLI is a one-shot command invocation.
	ModeCLI AppMode = "cli"
	// ModeWatch is the long-running filesystem watch loop.
	ModeWatch AppMode = "watch"
)

const (
	defaultServiceName        = "protoforge"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration. The zero value is usable
// but DefaultConfig fills in the service name and shutdown deadline.
type Config struct {
	// ServiceName and ServiceVersion identify the binary on the OTel
	// resource. Environment distinguishes deployments ("dev", "ci").
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Mode records the launch mode, see AppMode.
	Mode AppMode

	// OTLPEndpoint is the gRPC collector address, e.g. "localhost:4317".
	// When empty no exporters are built and all providers are no-op.
	OTLPEndpoint string

	// OTLPHeaders is extra gRPC metadata sent with every export request,
	// typically collector auth tokens.
	OTLPHeaders map[string]string

	// OTLPInsecure switches the collector connection to plaintext.
	OTLPInsecure bool

	// DebugTrace samples every trace. SampleRatio applies otherwise:
	// a value in (0, 1] sets a parent-based ratio sampler, zero keeps
	// the SDK default of parent-based always-on.
	DebugTrace  bool
	SampleRatio float64

	// TraceVerbose keeps hot-path spans (per-file compile invocations)
	// that are otherwise suppressed in favor of run and target spans.
	TraceVerbose bool

	// LogLevel is the minimum slog severity. LogJSON selects JSON
	// output over the human-readable text handler.
	LogLevel slog.Level
	LogJSON  bool

	// ShutdownTimeoutSec bounds the final flush of spans and metrics.
	ShutdownTimeoutSec int
}

// DefaultConfig returns the configuration used when no telemetry settings
// are present: no export, info-level text logs.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// shutdownTimeout returns the flush deadline, falling back to the default
// when the config carries no positive value.
func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec > 0 {
		return time.Duration(c.ShutdownTimeoutSec) * time.Second
	}

	return time.Duration(defaultShutdownTimeoutSec) * time.Second
}
