package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"

	tracing "github.com/Sumatoshi-tech/protoforge/pkg/observability"
)

// MetricsServer exposes Prometheus metrics and health endpoints over
// HTTP while watch mode runs.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	provider *sdkmetric.MeterProvider
}

// NewMetricsServer starts an HTTP server at addr with /metrics,
// /healthz, and /readyz endpoints. Requests are traced through the
// given tracer; ready checks gate /readyz. Instruments created from the
// server's Meter land in the registry /metrics scrapes.
func NewMetricsServer(addr string, tracer trace.Tracer, checks ...ReadyCheck) (*MetricsServer, error) {
	metricsHandler, provider, err := PrometheusHandler()
	if err != nil {
		return nil, fmt.Errorf("create prometheus handler: %w", err)
	}

	// Each route is traced individually so spans carry the matched
	// pattern as their name.
	mux := http.NewServeMux()
	mux.Handle("/metrics", tracing.HTTPMiddleware(tracer, metricsHandler))
	mux.Handle("/healthz", tracing.HTTPMiddleware(tracer, HealthHandler()))
	mux.Handle("/readyz", tracing.HTTPMiddleware(tracer, ReadyHandler(checks...)))

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		shutdownErr := provider.Shutdown(context.Background())
		if shutdownErr != nil {
			slog.Warn("meter provider shutdown failed", "error", shutdownErr)
		}

		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", serveErr)
		}
	}()

	return &MetricsServer{server: srv, listener: listener, provider: provider}, nil
}

// Addr returns the address the server is listening on.
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Meter returns a meter whose instruments are scraped at /metrics.
func (s *MetricsServer) Meter(name string) metric.Meter {
	return s.provider.Meter(name)
}

// Close gracefully shuts down the server and flushes the meter
// provider.
func (s *MetricsServer) Close() error {
	err := s.server.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	err = s.provider.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}

	return nil
}
