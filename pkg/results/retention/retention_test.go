package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/results"
)

var now = time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

type fakeObserver struct {
	calls   int
	deleted int64
}

func (o *fakeObserver) RecordPrune(deleted int64, _ time.Duration) {
	o.calls++
	o.deleted += deleted
}

// seed stores one run per day, the newest started one day before now.
func seed(t *testing.T, store results.Store, days int) {
	t.Helper()
	for i := 1; i <= days; i++ {
		run := &results.Run{
			ID:      fmt.Sprintf("run-%03d", i),
			Started: now.AddDate(0, 0, -i),
			Status:  "success",
		}
		if err := store.Save(context.Background(), run); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		config      config.RetentionConfig
		wantDeleted int64
		wantLeft    int64
	}{
		{
			name:        "by age",
			config:      config.RetentionConfig{Days: 5},
			wantDeleted: 5,
			wantLeft:    5,
		},
		{
			name:        "by count",
			config:      config.RetentionConfig{Days: -1, MaxRuns: 3},
			wantDeleted: 7,
			wantLeft:    3,
		},
		{
			name:        "age then count",
			config:      config.RetentionConfig{Days: 8, MaxRuns: 4},
			wantDeleted: 6,
			wantLeft:    4,
		},
		{
			name:        "keep forever",
			config:      config.RetentionConfig{Days: -1},
			wantDeleted: 0,
			wantLeft:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := results.NewMemoryStore()
			seed(t, store, 10)
			observer := &fakeObserver{}
			cfg := tt.config

			pruner := NewPruner(store, &cfg, WithObserver(observer), WithClock(func() time.Time { return now }))
			deleted, err := pruner.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Prune() deleted = %d, want %d", deleted, tt.wantDeleted)
			}

			left, _ := store.Count(context.Background(), nil)
			if left != tt.wantLeft {
				t.Errorf("runs left = %d, want %d", left, tt.wantLeft)
			}
			if observer.calls != 1 || observer.deleted != tt.wantDeleted {
				t.Errorf("observer got %d calls with %d deleted", observer.calls, observer.deleted)
			}
		})
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "daily", schedule: "0 3 * * *", wantRunning: true},
		{name: "every six hours", schedule: "0 */6 * * *", wantRunning: true},
		{name: "empty schedule", schedule: ""},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := NewPruner(results.NewMemoryStore(), &config.RetentionConfig{
				Days:          30,
				PruneSchedule: tt.schedule,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := pruner.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if pruner.scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", pruner.scheduler.IsRunning(), tt.wantRunning)
			}

			next := pruner.NextPruning()
			if tt.wantRunning && (next == nil || !next.After(time.Now())) {
				t.Errorf("NextPruning() = %v, want a future time", next)
			}
			if !tt.wantRunning && next != nil {
				t.Errorf("NextPruning() = %v, want nil", next)
			}

			pruner.Stop()
			if pruner.scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	pruner := NewPruner(results.NewMemoryStore(), &config.RetentionConfig{PruneSchedule: "@every 1h"})

	ctx, cancel := context.WithCancel(context.Background())
	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for pruner.scheduler.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not stop after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
