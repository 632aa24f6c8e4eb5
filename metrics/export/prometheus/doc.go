// Package prometheus exposes engine metrics as a prometheus.Collector.
//
// [NewCollector] reads [goAuthen.Engine.MetricsSnapshot] on each scrape.
// Counters are named authen_*_total; the single histogram is
// authen_initialize_latency_seconds. Mount [Collector.Handler] directly, or
// [Register] the collector with an existing registry.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry on its own.
//   - Mutate engine state.
package prometheus
