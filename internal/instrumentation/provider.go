package instrumentation

import (
	"context"
	"fmt"
	"os"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Provider owns the OpenTelemetry metrics pipeline. A disabled provider is
// fully functional: Metrics() returns an instance whose recorders are
// no-ops, so call sites never branch on configuration.
type Provider struct {
	config        Config
	meterProvider *sdkmetric.MeterProvider
	metrics       *Metrics
}

// NewProvider builds the metrics pipeline described by config. When
// instrumentation is disabled no exporter is created and the returned
// provider records nothing.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		return &Provider{config: config, metrics: &Metrics{}}, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	var reader sdkmetric.Reader
	switch config.MetricsExporter {
	case "prometheus", "":
		// The prometheus exporter registers with the default registry,
		// which the metrics HTTP handler serves.
		exporter, err := otelprom.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", config.MetricsExporter)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	meter := meterProvider.Meter("github.com/proxworks/mcp-proxmox")
	metrics, err := NewMetrics(meter)
	if err != nil {
		shutdownErr := meterProvider.Shutdown(ctx)
		if shutdownErr != nil {
			return nil, fmt.Errorf("failed to create metrics: %w (shutdown: %v)", err, shutdownErr)
		}
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &Provider{
		config:        config,
		meterProvider: meterProvider,
		metrics:       metrics,
	}, nil
}

// Enabled reports whether the provider records metrics.
func (p *Provider) Enabled() bool {
	return p.config.Enabled && p.meterProvider != nil
}

// Metrics returns the metric recorders. Never nil.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// PrometheusEndpoint returns the configured scrape path.
func (p *Provider) PrometheusEndpoint() string {
	if p.config.PrometheusEndpoint == "" {
		return "/metrics"
	}
	return p.config.PrometheusEndpoint
}

// Shutdown flushes and stops the metrics pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
