// Package commands implements CLI command handlers for protoforge.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/pkg/config"
	"github.com/Sumatoshi-tech/protoforge/pkg/observability"
	"github.com/Sumatoshi-tech/protoforge/pkg/version"
)

// logFormatJSON selects JSON log output in telemetry config.
const logFormatJSON = "json"

// sharedFlags are the flags common to every pipeline command.
type sharedFlags struct {
	configPath string
	protoDir   string
	targets    []string
	recursive  bool
	silent     bool
	noColor    bool
}

func (sf *sharedFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&sf.configPath, "config", "c", "", "Config file path (default: search .protoforge.yaml in . and $HOME)")
	cmd.Flags().StringVar(&sf.protoDir, "proto-dir", "", "Proto source directory (overrides config)")
	cmd.Flags().StringSliceVarP(&sf.targets, "target", "t", nil, "Target to build, repeatable (overrides config)")
	cmd.Flags().BoolVar(&sf.recursive, "recursive", false, "Recurse into proto subdirectories")
	cmd.Flags().BoolVar(&sf.silent, "silent", false, "Disable progress output")
	cmd.Flags().BoolVar(&sf.noColor, "no-color", false, "Disable colored output")
}

// loadConfig loads the configuration and applies flag overrides, then
// re-validates the result.
func (sf *sharedFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(sf.configPath)
	if err != nil {
		return nil, err
	}

	if sf.protoDir != "" {
		cfg.ProtoDir = sf.protoDir
	}

	if len(sf.targets) > 0 {
		cfg.Targets = sf.targets
	}

	if cmd.Flags().Changed("recursive") {
		cfg.Recursive = sf.recursive
	}

	if sf.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// setupObservability initializes telemetry from the loaded config and
// installs the structured logger as the process default.
func setupObservability(cfg *config.Config, mode observability.AppMode, verbose bool) (observability.Providers, error) {
	level := parseLogLevel(cfg.Telemetry.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		Mode:           mode,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPHeaders:    observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders),
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		LogLevel:       level,
		LogJSON:        cfg.Telemetry.LogFormat == logFormatJSON,
		DebugTrace:     verbose,
		TraceVerbose:   verbose,
	})
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init telemetry: %w", err)
	}

	slog.SetDefault(providers.Logger)

	return providers, nil
}

func shutdownProviders(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		slog.Warn("telemetry shutdown", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isSilent merges the command's --silent flag with the root --quiet
// persistent flag.
func isSilent(cmd *cobra.Command, silent bool) bool {
	if silent {
		return true
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return false
	}

	return quiet
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}

	return verbose
}

func progressf(silent bool, writer io.Writer, format string, args ...any) {
	if silent {
		return
	}

	_, _ = fmt.Fprintf(writer, "progress: "+format+"\n", args...)
}
