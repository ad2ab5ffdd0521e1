package metrics

import (
	"time"

	"mercator-hq/taxsim/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RuleMetrics tracks per-rule execution.
//
// Metrics:
//   - taxsim_engine_rule_executions_total: Rule executions by rule
//   - taxsim_engine_rule_duration_seconds: Rule execution time per partition
type RuleMetrics struct {
	executionsTotal *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	rm := &RuleMetrics{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_executions_total",
				Help:      "Total number of rule executions",
			},
			[]string{"rule"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_duration_seconds",
				Help:      "Duration of a single rule execution in seconds",
				Buckets:   cfg.RuleDurationBuckets,
			},
			[]string{"rule"},
		),
	}

	registry.MustRegister(
		rm.executionsTotal,
		rm.duration,
	)

	return rm
}

// RecordRule records a rule execution.
func (rm *RuleMetrics) RecordRule(rule string, duration time.Duration) {
	rm.executionsTotal.WithLabelValues(rule).Inc()
	rm.duration.WithLabelValues(rule).Observe(duration.Seconds())
}
