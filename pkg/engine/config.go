package engine

import (
	"fmt"
	"time"
)

// Config contains configuration for the evaluation engine.
type Config struct {
	// Partitions is the default number of household partitions evaluated in
	// parallel. 0 or 1 evaluates sequentially. A request may override it.
	// Default: 1.
	Partitions int

	// PlanCacheSize is the number of resolved plans kept. 0 disables caching.
	// Default: 64.
	PlanCacheSize int

	// MaxErrorRows limits the sample of offending rows reported by a DataError.
	// Default: 5.
	MaxErrorRows int

	// RuleTimeout bounds the time spent in a single rule. 0 means no limit.
	// The check runs between rules, so a slow rule is reported after it returns.
	// Default: 0.
	RuleTimeout time.Duration

	// ValidateRegistry runs a full interval sweep of the registry when the
	// engine is created and refuses registries with gaps.
	// Default: false.
	ValidateRegistry bool

	// RecoverPanics converts a panicking rule into an EvaluationError instead
	// of crashing the process.
	// Default: true.
	RecoverPanics bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Partitions:    1,
		PlanCacheSize: 64,
		MaxErrorRows:  5,
		RecoverPanics: true,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.Partitions < 0 {
		return fmt.Errorf("%w: partitions must not be negative", ErrInvalidConfig)
	}
	if c.PlanCacheSize < 0 {
		return fmt.Errorf("%w: plan cache size must not be negative", ErrInvalidConfig)
	}
	if c.MaxErrorRows <= 0 {
		return fmt.Errorf("%w: max error rows must be positive", ErrInvalidConfig)
	}
	if c.RuleTimeout < 0 {
		return fmt.Errorf("%w: rule timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// WithPartitions sets the default partition count.
func (c *Config) WithPartitions(n int) *Config {
	c.Partitions = n
	return c
}

// WithPlanCacheSize sets the plan cache size.
func (c *Config) WithPlanCacheSize(n int) *Config {
	c.PlanCacheSize = n
	return c
}

// WithMaxErrorRows sets the size of the row sample in data errors.
func (c *Config) WithMaxErrorRows(n int) *Config {
	c.MaxErrorRows = n
	return c
}

// WithRuleTimeout sets the per-rule time limit.
func (c *Config) WithRuleTimeout(d time.Duration) *Config {
	c.RuleTimeout = d
	return c
}

// WithValidateRegistry enables the registry sweep at construction.
func (c *Config) WithValidateRegistry(enabled bool) *Config {
	c.ValidateRegistry = enabled
	return c
}

// WithRecoverPanics enables or disables panic recovery in rules.
func (c *Config) WithRecoverPanics(enabled bool) *Config {
	c.RecoverPanics = enabled
	return c
}
