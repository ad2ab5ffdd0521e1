package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/results"
)

// Observer receives the outcome of every pruning cycle. The metrics
// collector implements it.
type Observer interface {
	RecordPrune(deleted int64, duration time.Duration)
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithObserver reports pruning cycles to o.
func WithObserver(o Observer) Option {
	return func(p *Pruner) { p.observer = o }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pruner) { p.now = now }
}

// Pruner enforces the retention policy on a run store.
type Pruner struct {
	store     results.Store
	config    *config.RetentionConfig
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a pruner. A nil config keeps runs for the default
// retention period.
func NewPruner(store results.Store, cfg *config.RetentionConfig, opts ...Option) *Pruner {
	if cfg == nil {
		cfg = &config.RetentionConfig{
			Days:          config.DefaultResultsRetentionDays,
			PruneSchedule: config.DefaultResultsRetentionSchedule,
		}
	}
	p := &Pruner{
		store:  store,
		config: cfg,
		logger: slog.Default().With("component", "results.retention"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes runs older than the retention period, then the oldest runs
// beyond the maximum run count. It returns the number of runs deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	started := p.now()
	var total int64

	if p.config.Days > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.Days)
		deleted, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned runs by age",
			"deleted_count", deleted,
			"cutoff_time", cutoff,
		)
	}

	if p.config.MaxRuns > 0 {
		deleted, err := p.store.DeleteOldest(ctx, p.config.MaxRuns)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned runs by count",
			"deleted_count", deleted,
			"max_runs", p.config.MaxRuns,
		)
	}

	if p.observer != nil {
		p.observer.RecordPrune(total, p.now().Sub(started))
	}
	if total > 0 {
		p.logger.Info("run pruning completed",
			"total_deleted", total,
			"retention_days", p.config.Days,
			"max_runs", p.config.MaxRuns,
		)
	}
	return total, nil
}

// Start starts scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning and waits for a running cycle.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
