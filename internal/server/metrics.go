package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/proxworks/mcp-proxmox/internal/instrumentation"
)

// MetricsServer serves the Prometheus scrape endpoint on a dedicated
// listener, separate from the MCP transport, so scraping never interferes
// with tool traffic.
type MetricsServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewMetricsServer builds a metrics server on addr. The scrape path comes
// from the instrumentation provider configuration.
func NewMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*MetricsServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("metrics listen address must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := "/metrics"
	if provider != nil {
		endpoint = provider.PrometheusEndpoint()
	}

	mux := http.NewServeMux()
	// The otel prometheus exporter registers with the default registry.
	mux.Handle(endpoint, promhttp.Handler())

	return &MetricsServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

// Start serves the scrape endpoint until Shutdown. It blocks.
func (s *MetricsServer) Start() error {
	s.logger.Info("metrics server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
