// Package prometheus renders goGate counters and the verify latency histogram in the
// Prometheus text exposition format.
//
// [NewPrometheusExporter] wraps a [goGate.Engine]; mount [PrometheusExporter.Handler] on
// any mux. Counters are named gogate_*_total and the histogram is
// gogate_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry.
//   - Mutate engine state.
package prometheus
