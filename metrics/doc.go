// Package metrics implements TemplateMetrics (§4.12): per-request timing
// of template compilation (binding is not timed), atomic counters for
// cache hits and misses,
// a logarithmic periodic-logging schedule, and a read-only MXBean-style
// snapshot for callers.
package metrics
