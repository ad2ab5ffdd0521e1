package metrics

import (
	"time"

	"mercator-hq/taxsim/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks batch evaluations.
//
// Metrics:
//   - taxsim_engine_evaluations_total: Evaluations by status
//   - taxsim_engine_evaluation_duration_seconds: Evaluation wall time
//   - taxsim_engine_rows_total: Input rows evaluated
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	rowsTotal          prometheus.Counter
}

// NewEvaluationMetrics creates and registers evaluation metrics with the provided registry.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of batch evaluations",
			},
			[]string{"status"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of batch evaluations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"status"},
		),

		rowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rows_total",
				Help:      "Total number of input rows evaluated",
			},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.rowsTotal,
	)

	return em
}

// RecordEvaluation records one evaluation. Rows are only counted for
// successful evaluations.
func (em *EvaluationMetrics) RecordEvaluation(status string, rows int, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(status).Inc()
	em.evaluationDuration.WithLabelValues(status).Observe(duration.Seconds())
	if status == "success" && rows > 0 {
		em.rowsTotal.Add(float64(rows))
	}
}
