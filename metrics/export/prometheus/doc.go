// Package prometheus exposes goSession Engine metrics to Prometheus.
//
// [Collector] implements prometheus.Collector over [goSession.Engine.MetricsSnapshot];
// [Exporter] registers it on a private registry and serves it with promhttp.
// Counter names are prefixed gosession_*_total; the single histogram is
// gosession_session_read_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
