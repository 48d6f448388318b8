package config

import "time"

// Source enumeration defaults.
const (
	DefaultProtoDir  = "proto"
	DefaultRecursive = false
)

// Build defaults. Zero jobs means one worker per CPU.
const (
	DefaultBuildJobs      = 0
	DefaultBuildOnError   = OnErrorContinue
	DefaultBuildMaxOutput = "64KiB"
)

// Python target defaults.
const (
	DefaultPythonOutDir = "gen/python"
	DefaultPythonTool   = "python3"
	DefaultPythonFixer  = true
)

// TypeScript target defaults.
const (
	DefaultTypeScriptOutDir = "gen/typescript"
	DefaultTypeScriptPlugin = "node_modules/.bin/protoc-gen-ts_proto"
)

// Go target defaults.
const (
	DefaultGoOutDir = "gen/go"
)

// Report defaults.
const (
	DefaultReportDir     = ".protoforge/runs"
	DefaultReportArchive = false
)

// Watch defaults. An empty metrics address disables the endpoint.
const (
	DefaultWatchDebounce    = "500ms"
	DefaultWatchMetricsAddr = ""
)

// Telemetry defaults.
const (
	DefaultTelemetryServiceName = "protoforge"
	DefaultTelemetryLogLevel    = "info"
	DefaultTelemetryLogFormat   = "text"
	DefaultTelemetrySampleRatio = 1.0
)

// Default returns a Config populated with every default value, matching
// what LoadConfig yields when no file, env var, or flag overrides it.
func Default() *Config {
	debounce, _ := time.ParseDuration(DefaultWatchDebounce)

	return &Config{
		ProtoDir:  DefaultProtoDir,
		Targets:   []string{"python", "typescript"},
		Recursive: DefaultRecursive,
		Build: BuildConfig{
			OnError:   DefaultBuildOnError,
			MaxOutput: DefaultBuildMaxOutput,
			Jobs:      DefaultBuildJobs,
		},
		Python: PythonConfig{
			OutDir: DefaultPythonOutDir,
			Tool:   DefaultPythonTool,
			Fixer:  DefaultPythonFixer,
		},
		TypeScript: TypeScriptConfig{
			OutDir:  DefaultTypeScriptOutDir,
			Plugin:  DefaultTypeScriptPlugin,
			Options: []string{"fileSuffix=.pb"},
		},
		Go: GoConfig{
			OutDir: DefaultGoOutDir,
		},
		Report: ReportConfig{
			Dir:     DefaultReportDir,
			Archive: DefaultReportArchive,
		},
		Watch: WatchConfig{
			MetricsAddr: DefaultWatchMetricsAddr,
			Debounce:    debounce,
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultTelemetryServiceName,
			LogLevel:    DefaultTelemetryLogLevel,
			LogFormat:   DefaultTelemetryLogFormat,
			SampleRatio: DefaultTelemetrySampleRatio,
		},
	}
}
