// Package metric provides Prometheus metrics for recall.
//
//   - prometheus.go: the Registry of request, refresh, purge and bridge
//     counters, plus text exposition for the `system metrics` command
//   - collector.go: a collector sampling the stored session at scrape time
//
// A nil *Registry is valid and records nothing, so components can be
// constructed without metrics in tests.
package metric
