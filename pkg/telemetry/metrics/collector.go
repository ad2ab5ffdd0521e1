package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/taxsim/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// maxRuleLabels bounds the number of distinct rule label values. Rule names
// come from the registry, so the limit is only reached by a registry far
// larger than any law book.
const maxRuleLabels = 2000

// Collector is the main orchestrator for all Prometheus metrics in taxsim.
// It manages metric registration and implements the engine's Recorder
// interface, so it can be passed to engine.WithRecorder directly.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Evaluation metrics
	evaluationMetrics *EvaluationMetrics

	// Per-rule metrics
	ruleMetrics *RuleMetrics

	// Plan cache metrics
	cacheMetrics *CacheMetrics

	// Parameter store and results store metrics
	storeMetrics *StoreMetrics

	// Cardinality tracking for rule labels
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "taxsim",
//		Subsystem: "engine",
//	}
//	collector := metrics.NewCollector(cfg, nil)
//	eng, err := engine.New(reg, params, engineCfg, engine.WithRecorder(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}
	if len(cfg.RuleDurationBuckets) == 0 {
		cfg.RuleDurationBuckets = append([]float64(nil), config.DefaultRuleDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(maxRuleLabels),
	}

	c.evaluationMetrics = NewEvaluationMetrics(cfg, registry)
	c.ruleMetrics = NewRuleMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)
	c.storeMetrics = NewStoreMetrics(cfg, registry)

	return c
}

// RecordEvaluation records a finished evaluation.
//
// Parameters:
//   - status: Outcome ("success", "config", "data", "rule", "canceled")
//   - rows: Number of input rows
//   - duration: Wall time of the evaluation
func (c *Collector) RecordEvaluation(status string, rows int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.evaluationMetrics.RecordEvaluation(status, rows, duration)
}

// RecordRule records the execution time of one rule over one partition.
func (c *Collector) RecordRule(rule string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	if !c.cardinalityLimiter.Allow(fmt.Sprintf("rule:%s", rule)) {
		rule = "other"
	}
	c.ruleMetrics.RecordRule(rule, duration)
}

// RecordPlanCache records a plan cache lookup.
func (c *Collector) RecordPlanCache(hit bool) {
	if !c.config.Enabled {
		return
	}

	if hit {
		c.cacheMetrics.RecordHit("plan")
	} else {
		c.cacheMetrics.RecordMiss("plan")
	}
}

// UpdatePlanCacheSize updates the number of cached plans.
func (c *Collector) UpdatePlanCacheSize(size int) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.UpdateSize("plan", size)
}

// RecordParameterReload records a parameter directory reload.
//
// Parameters:
//   - err: The reload error, or nil on success
func (c *Collector) RecordParameterReload(err error) {
	if !c.config.Enabled {
		return
	}

	c.storeMetrics.RecordReload(err == nil)
}

// RecordPrune records a retention pass over the results store.
func (c *Collector) RecordPrune(deleted int64, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.storeMetrics.RecordPrune(deleted, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
