package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// configName is the config file name without extension.
	configName = ".protoforge"

	// configType fixes the file format; only YAML configs are read.
	configType = "yaml"

	// envPrefix scopes environment overrides, e.g. PROTOFORGE_PROTO_DIR.
	envPrefix = "PROTOFORGE"

	// envKeySeparator replaces the dot in nested keys for env names,
	// so build.jobs becomes PROTOFORGE_BUILD_JOBS.
	envKeySeparator = "_"
)

// LoadConfig resolves configuration from three layers in rising priority:
// compiled-in defaults, an optional .protoforge.yaml file, and PROTOFORGE_*
// environment variables. When configPath is empty the file is searched in
// the working directory and $HOME; a missing file means defaults apply.
func LoadConfig(configPath string) (*Config, error) {
	v := newViper(configPath)

	readErr := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if readErr != nil && !errors.As(readErr, &notFound) {
		return nil, fmt.Errorf("read config: %w", readErr)
	}

	cfg := new(Config)

	unmarshalErr := v.Unmarshal(cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// newViper assembles the viper instance: defaults, env binding, then the
// config file location.
func newViper(configPath string) *viper.Viper {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)

		return v
	}

	v.SetConfigName(configName)
	v.AddConfigPath(".")

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		v.AddConfigPath(home)
	}

	return v
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("proto_dir", DefaultProtoDir)
	v.SetDefault("recursive", DefaultRecursive)
	v.SetDefault("targets", []string{"python", "typescript"})

	v.SetDefault("build.jobs", DefaultBuildJobs)
	v.SetDefault("build.on_error", DefaultBuildOnError)
	v.SetDefault("build.max_output", DefaultBuildMaxOutput)

	v.SetDefault("python.out_dir", DefaultPythonOutDir)
	v.SetDefault("python.tool", DefaultPythonTool)
	v.SetDefault("python.fixer", DefaultPythonFixer)

	v.SetDefault("typescript.out_dir", DefaultTypeScriptOutDir)
	v.SetDefault("typescript.plugin", DefaultTypeScriptPlugin)
	v.SetDefault("typescript.options", []string{"fileSuffix=.pb"})

	v.SetDefault("go.out_dir", DefaultGoOutDir)

	v.SetDefault("report.dir", DefaultReportDir)
	v.SetDefault("report.archive", DefaultReportArchive)

	v.SetDefault("watch.debounce", DefaultWatchDebounce)
	v.SetDefault("watch.metrics_addr", DefaultWatchMetricsAddr)

	v.SetDefault("telemetry.service_name", DefaultTelemetryServiceName)
	v.SetDefault("telemetry.environment", "")
	v.SetDefault("telemetry.log_level", DefaultTelemetryLogLevel)
	v.SetDefault("telemetry.log_format", DefaultTelemetryLogFormat)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_headers", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
}
