// Package config provides file, environment, and default configuration for protoforge.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Failure policies for per-target compile errors.
const (
	// OnErrorContinue keeps scheduling compiles after a failure; the run
	// still finishes with a failed status.
	OnErrorContinue = "continue"
	// OnErrorFailFast stops scheduling new compiles for a target after its
	// first failure and skips that target's fixer.
	OnErrorFailFast = "fail_fast"
)

// Config is the top-level configuration struct for protoforge.
// Field tags use mapstructure for viper unmarshalling and yaml for
// rendering the effective config.
type Config struct {
	ProtoDir   string           `mapstructure:"proto_dir"  yaml:"proto_dir"`
	Targets    []string         `mapstructure:"targets"    yaml:"targets"`
	Build      BuildConfig      `mapstructure:"build"      yaml:"build"`
	Python     PythonConfig     `mapstructure:"python"     yaml:"python"`
	TypeScript TypeScriptConfig `mapstructure:"typescript" yaml:"typescript"`
	Go         GoConfig         `mapstructure:"go"         yaml:"go"`
	Report     ReportConfig     `mapstructure:"report"     yaml:"report"`
	Watch      WatchConfig      `mapstructure:"watch"      yaml:"watch"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"  yaml:"telemetry"`
	Recursive  bool             `mapstructure:"recursive"  yaml:"recursive"`
}

// BuildConfig holds orchestration knobs shared by all targets.
type BuildConfig struct {
	OnError   string `mapstructure:"on_error"   yaml:"on_error"`
	MaxOutput string `mapstructure:"max_output" yaml:"max_output"`
	Jobs      int    `mapstructure:"jobs"       yaml:"jobs"`
}

// PythonConfig holds python target settings.
type PythonConfig struct {
	OutDir string `mapstructure:"out_dir" yaml:"out_dir"`
	Tool   string `mapstructure:"tool"    yaml:"tool"`
	Fixer  bool   `mapstructure:"fixer"   yaml:"fixer"`
}

// TypeScriptConfig holds typescript target settings.
type TypeScriptConfig struct {
	OutDir  string   `mapstructure:"out_dir" yaml:"out_dir"`
	Plugin  string   `mapstructure:"plugin"  yaml:"plugin"`
	Options []string `mapstructure:"options" yaml:"options"`
}

// GoConfig holds go target settings.
type GoConfig struct {
	OutDir string `mapstructure:"out_dir" yaml:"out_dir"`
}

// ReportConfig holds run report persistence settings.
type ReportConfig struct {
	Dir     string `mapstructure:"dir"     yaml:"dir"`
	Archive bool   `mapstructure:"archive" yaml:"archive"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	MetricsAddr string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	Debounce    time.Duration `mapstructure:"debounce"     yaml:"debounce"`
}

// MarshalYAML renders the debounce as a duration string, the same form
// the loader accepts, instead of raw nanoseconds.
func (w WatchConfig) MarshalYAML() (any, error) {
	type watchYAML struct {
		MetricsAddr string `yaml:"metrics_addr"`
		Debounce    string `yaml:"debounce"`
	}

	return watchYAML{MetricsAddr: w.MetricsAddr, Debounce: w.Debounce.String()}, nil
}

// TelemetryConfig holds logging and OpenTelemetry export settings.
// OTLPHeaders is a comma-separated key=value list attached to every
// export request, e.g. "authorization=Bearer tok,tenant=dev".
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"  yaml:"service_name"`
	Environment  string  `mapstructure:"environment"   yaml:"environment"`
	LogLevel     string  `mapstructure:"log_level"     yaml:"log_level"`
	LogFormat    string  `mapstructure:"log_format"    yaml:"log_format"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"  yaml:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  yaml:"sample_ratio"`
}

// sampleRatioMax is the upper bound for the trace sample ratio.
const sampleRatioMax = 1.0

// Sentinel errors for configuration validation.
var (
	// ErrEmptyProtoDir indicates the proto source directory is unset.
	ErrEmptyProtoDir = errors.New("proto_dir must not be empty")
	// ErrNoTargets indicates the target list is empty.
	ErrNoTargets = errors.New("targets must not be empty")
	// ErrInvalidJobs indicates the worker count is negative.
	ErrInvalidJobs = errors.New("build.jobs must be non-negative")
	// ErrInvalidOnError indicates an unknown failure policy.
	ErrInvalidOnError = errors.New("build.on_error must be continue or fail_fast")
	// ErrInvalidDebounce indicates a negative watch debounce interval.
	ErrInvalidDebounce = errors.New("watch.debounce must be non-negative")
	// ErrInvalidSampleRatio indicates the trace sample ratio is out of range.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	buildErr := c.validateBuild()
	if buildErr != nil {
		return buildErr
	}

	return c.validateTelemetry()
}

func (c *Config) validateBuild() error {
	if c.ProtoDir == "" {
		return ErrEmptyProtoDir
	}

	if len(c.Targets) == 0 {
		return ErrNoTargets
	}

	if c.Build.Jobs < 0 {
		return ErrInvalidJobs
	}

	if c.Build.OnError != OnErrorContinue && c.Build.OnError != OnErrorFailFast {
		return fmt.Errorf("%w: %q", ErrInvalidOnError, c.Build.OnError)
	}

	if c.Watch.Debounce < 0 {
		return ErrInvalidDebounce
	}

	return nil
}

func (c *Config) validateTelemetry() error {
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > sampleRatioMax {
		return ErrInvalidSampleRatio
	}

	return nil
}
