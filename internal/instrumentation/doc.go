// Package instrumentation wires OpenTelemetry metrics for the server. It
// is disabled by default; INSTRUMENTATION_ENABLED=true turns on the
// Prometheus (or stdout) exporter. The Metrics type doubles as the cache
// metrics recorder for the cluster registry.
package instrumentation
