package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrMethod  = "method"
	attrPath    = "path"
	attrStatus  = "status"
	attrTool    = "tool"
	attrCluster = "cluster"
	attrReason  = "reason"
)

// Metrics provides methods for recording observability metrics. The zero
// value is a valid no-op recorder; every Record method tolerates nil
// instruments so a disabled provider costs nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Tool call metrics
	toolCallsTotal   metric.Int64Counter
	toolCallDuration metric.Float64Histogram

	// Cluster handle cache metrics
	cacheHitsTotal      metric.Int64Counter
	cacheMissesTotal    metric.Int64Counter
	cacheEvictionsTotal metric.Int64Counter
	cacheEntries        metric.Int64Gauge
	handleBuildDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.toolCallsTotal, err = meter.Int64Counter(
		"mcp_proxmox_tool_calls_total",
		metric.WithDescription("Total number of MCP tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_proxmox_tool_calls_total counter: %w", err)
	}

	m.toolCallDuration, err = meter.Float64Histogram(
		"mcp_proxmox_tool_call_duration_seconds",
		metric.WithDescription("MCP tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_proxmox_tool_call_duration_seconds histogram: %w", err)
	}

	m.cacheHitsTotal, err = meter.Int64Counter(
		"mcp_proxmox_cluster_cache_hits_total",
		metric.WithDescription("Total number of cluster handle cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_proxmox_cluster_cache_hits_total counter: %w", err)
	}

	m.cacheMissesTotal, err = meter.Int64Counter(
		"mcp_proxmox_cluster_cache_misses_total",
		metric.WithDescription("Total number of cluster handle cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_proxmox_cluster_cache_misses_total counter: %w", err)
	}

	m.cacheEvictionsTotal, err = meter.Int64Counter(
		"mcp_proxmox_cluster_cache_evictions_total",
		metric.WithDescription("Total number of cluster handle cache evictions"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_proxmox_cluster_cache_evictions_total counter: %w", err)
	}

	m.cacheEntries, err = meter.Int64Gauge(
		"mcp_proxmox_cluster_cache_entries",
		metric.WithDescription("Current number of cached cluster handles"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_proxmox_cluster_cache_entries gauge: %w", err)
	}

	m.handleBuildDuration, err = meter.Float64Histogram(
		"mcp_proxmox_cluster_handle_build_duration_seconds",
		metric.WithDescription("Cluster handle build duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_proxmox_cluster_handle_build_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolCall records one MCP tool invocation with its target cluster,
// outcome, and duration.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, cluster, status string, duration time.Duration) {
	if m.toolCallsTotal == nil || m.toolCallDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrCluster, cluster),
		attribute.String(attrStatus, status),
	}

	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cluster handle cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context, cluster string) {
	if m.cacheHitsTotal == nil {
		return
	}
	m.cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCluster, cluster)))
}

// RecordCacheMiss records a cluster handle cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context, cluster string) {
	if m.cacheMissesTotal == nil {
		return
	}
	m.cacheMissesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCluster, cluster)))
}

// RecordCacheEviction records a cache eviction with its reason
// (expired, invalidated, closed).
func (m *Metrics) RecordCacheEviction(ctx context.Context, reason string) {
	if m.cacheEvictionsTotal == nil {
		return
	}
	m.cacheEvictionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

// RecordBuildDuration records how long one cluster handle build took.
func (m *Metrics) RecordBuildDuration(ctx context.Context, cluster string, d time.Duration, success bool) {
	if m.handleBuildDuration == nil {
		return
	}
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	m.handleBuildDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(attrCluster, cluster),
		attribute.String(attrStatus, status),
	))
}

// SetCacheSize records the current number of cached cluster handles.
func (m *Metrics) SetCacheSize(ctx context.Context, size int) {
	if m.cacheEntries == nil {
		return
	}
	m.cacheEntries.Record(ctx, int64(size))
}
