// Package prometheus exports storeAuth engine metrics through
// prometheus/client_golang.
//
// [Exporter] is a prometheus.Collector that reads [storeAuth.Engine.MetricsSnapshot]
// on every scrape and emits const metrics. Counter names are
// storeauth_*_total; the single histogram is storeauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry. Callers use [Exporter.Register]
//     or mount [Exporter.Handler].
//   - Mutate engine state.
package prometheus
