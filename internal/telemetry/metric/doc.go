// Package metric provides Prometheus metrics for snapcoord.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry and HTTP handler
//   - collector.go: Live-session collector read at scrape time
//
// Metrics include:
//
//   - Session starts, rejections and outcomes
//   - Session lifetime histograms
//   - Host event, host report and agent call counters
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
