package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/build"
	metrics "github.com/Sumatoshi-tech/protoforge/internal/observability"
	"github.com/Sumatoshi-tech/protoforge/internal/report"
	"github.com/Sumatoshi-tech/protoforge/internal/target"
	"github.com/Sumatoshi-tech/protoforge/internal/toolchain"
	"github.com/Sumatoshi-tech/protoforge/internal/watch"
	"github.com/Sumatoshi-tech/protoforge/pkg/config"
	"github.com/Sumatoshi-tech/protoforge/pkg/observability"
)

// WatchCommand holds flags and dependencies for the watch command.
type WatchCommand struct {
	sharedFlags
	jobs        int
	metricsAddr string
	debounce    time.Duration

	runner toolchain.Runner
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return newWatchCommandWithDeps(toolchain.ExecRunner{})
}

func newWatchCommandWithDeps(runner toolchain.Runner) *cobra.Command {
	wc := &WatchCommand{runner: runner}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever proto sources change",
		Long: `Watch runs the pipeline once, then re-runs it every time a proto file
under the source directory changes. Bursts of events are coalesced by
the debounce window. With a metrics address set, Prometheus metrics
and health endpoints are served over HTTP for the life of the watch.`,
		Args: cobra.NoArgs,
		RunE: wc.run,
	}

	wc.register(cmd)
	cmd.Flags().IntVarP(&wc.jobs, "jobs", "j", 0, "Parallel compile invocations per target (0 = CPU count)")
	cmd.Flags().StringVar(&wc.metricsAddr, "metrics-addr", "", "Address to serve /metrics on, e.g. :9090 (overrides config)")
	cmd.Flags().DurationVar(&wc.debounce, "debounce", 0, "Quiet window before a rebuild (overrides config)")

	return cmd
}

func (wc *WatchCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := wc.loadConfig(cmd)
	if err != nil {
		return err
	}

	wc.applyFlags(cmd, cfg)

	silent := isSilent(cmd, wc.silent)
	progressWriter := cmd.ErrOrStderr()

	providers, err := setupObservability(cfg, observability.ModeWatch, isVerbose(cmd))
	if err != nil {
		return err
	}
	defer shutdownProviders(providers)

	targets, err := target.FromConfig(cfg)
	if err != nil {
		return err
	}

	orch, err := build.New(cfg, targets, wc.runner)
	if err != nil {
		return err
	}

	orch.Tracer = providers.Tracer

	buildMetrics, stopMetrics, err := wc.setupMetrics(cfg, providers, silent, progressWriter)
	if err != nil {
		return err
	}
	defer stopMetrics()

	orch.Metrics = buildMetrics

	store := report.NewStore(cfg.Report)

	runFn := func(ctx context.Context) {
		rep, runErr := orch.Run(ctx)
		if rep == nil {
			slog.Error("build failed", "error", runErr)

			return
		}

		if ctx.Err() != nil {
			return
		}

		progressf(silent, progressWriter, "%s", report.Summary(rep))

		path, saveErr := store.Save(rep)
		if saveErr != nil {
			slog.Warn("report not saved", "error", saveErr)

			return
		}

		slog.Debug("report written", "path", path)
	}

	watcher, err := watch.New(cfg.ProtoDir, cfg.Recursive, cfg.Watch.Debounce, runFn)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := watcher.Close()
		if closeErr != nil {
			slog.Warn("close watcher", "error", closeErr)
		}
	}()

	progressf(silent, progressWriter, "watching %s (debounce %s)", cfg.ProtoDir, cfg.Watch.Debounce)

	err = watcher.Watch(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// setupMetrics wires build metrics either into the scrapeable HTTP
// server, when an address is configured, or into the OTLP meter. The
// returned stop function shuts the server down; without a server it is
// a no-op.
func (wc *WatchCommand) setupMetrics(cfg *config.Config, providers observability.Providers,
	silent bool, progressWriter io.Writer,
) (*metrics.BuildMetrics, func(), error) {
	if cfg.Watch.MetricsAddr == "" {
		buildMetrics, err := metrics.NewBuildMetrics(providers.Meter)

		return buildMetrics, func() {}, err
	}

	ready := func(context.Context) error {
		_, statErr := os.Stat(cfg.ProtoDir)
		if statErr != nil {
			return fmt.Errorf("stat proto dir: %w", statErr)
		}

		return nil
	}

	srv, err := metrics.NewMetricsServer(cfg.Watch.MetricsAddr, providers.Tracer, ready)
	if err != nil {
		return nil, func() {}, err
	}

	stop := func() {
		closeErr := srv.Close()
		if closeErr != nil {
			slog.Warn("close metrics server", "error", closeErr)
		}
	}

	progressf(silent, progressWriter, "metrics at http://%s/metrics", srv.Addr())

	buildMetrics, err := metrics.NewBuildMetrics(srv.Meter("protoforge"))
	if err != nil {
		stop()

		return nil, func() {}, err
	}

	return buildMetrics, stop, nil
}

// applyFlags folds the watch-specific flag overrides into cfg.
func (wc *WatchCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("jobs") {
		cfg.Build.Jobs = wc.jobs
	}

	if wc.metricsAddr != "" {
		cfg.Watch.MetricsAddr = wc.metricsAddr
	}

	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce = wc.debounce
	}
}
