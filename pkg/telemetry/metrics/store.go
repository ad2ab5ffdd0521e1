package metrics

import (
	"time"

	"mercator-hq/taxsim/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks the parameter store and the results store.
//
// Metrics:
//   - taxsim_engine_parameter_reloads_total: Parameter reloads by result
//   - taxsim_engine_pruned_runs_total: Stored runs removed by retention
//   - taxsim_engine_prune_duration_seconds: Duration of retention passes
type StoreMetrics struct {
	reloadsTotal  *prometheus.CounterVec
	prunedTotal   prometheus.Counter
	pruneDuration prometheus.Histogram
}

// NewStoreMetrics creates and registers store metrics with the provided registry.
func NewStoreMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "parameter_reloads_total",
				Help:      "Total number of parameter directory reloads",
			},
			[]string{"result"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pruned_runs_total",
				Help:      "Total number of stored runs removed by retention",
			},
		),

		pruneDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "prune_duration_seconds",
				Help:      "Duration of retention passes in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),
	}

	registry.MustRegister(
		sm.reloadsTotal,
		sm.prunedTotal,
		sm.pruneDuration,
	)

	return sm
}

// RecordReload records a parameter reload.
func (sm *StoreMetrics) RecordReload(ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	sm.reloadsTotal.WithLabelValues(result).Inc()
}

// RecordPrune records a retention pass.
func (sm *StoreMetrics) RecordPrune(deleted int64, duration time.Duration) {
	if deleted > 0 {
		sm.prunedTotal.Add(float64(deleted))
	}
	sm.pruneDuration.Observe(duration.Seconds())
}
