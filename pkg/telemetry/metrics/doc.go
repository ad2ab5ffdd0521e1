// Package metrics provides Prometheus metrics collection for taxsim.
//
// # Overview
//
// The Collector implements the engine's Recorder interface and counts
// evaluations by outcome, times each rule, and tracks the plan cache, the
// parameter store and results retention.
//
// # Metrics
//
//   - Evaluation Metrics: evaluation count and duration by status, rows evaluated
//   - Rule Metrics: rule executions and per-partition duration by rule
//   - Cache Metrics: plan cache hits, misses and size
//   - Store Metrics: parameter reloads, pruned runs and prune duration
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng, err := engine.New(reg, params, engineCfg, engine.WithRecorder(collector))
//	...
//	if err := collector.WriteTextfile(cfg.Telemetry.Metrics.TextfilePath); err != nil {
//	    logger.Warn("failed to write metrics", "error", err)
//	}
//
// taxsim is a batch tool, so metrics are written to a textfile for the node
// exporter instead of being served over HTTP.
//
// # Cardinality
//
// Rule labels are bounded by a CardinalityLimiter; rules beyond the limit
// are reported as "other".
package metrics
