package results

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/engine"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newSQLite(t *testing.T, driver string) *SQLiteStore {
	t.Helper()
	cfg := &config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "runs.db"),
		Driver:      driver,
		JournalMode: "wal",
		BusyTimeout: time.Second,
	}
	s, err := NewSQLiteStore(cfg)
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skipf("driver %s needs cgo", driver)
	}
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLite(t, "sqlite"),
	}
}

func testRun(i int, status string) *Run {
	return &Run{
		ID:              fmt.Sprintf("run-%02d", i),
		PolicyDate:      rules.Date(2020, 1, 1),
		Started:         base.Add(time.Duration(i) * time.Hour),
		Duration:        time.Duration(i) * time.Millisecond,
		Status:          status,
		Rows:            10 * i,
		Partitions:      1,
		Targets:         []string{"income_tax_tu", "child_benefit_paid"},
		RegistryVersion: "abc123",
	}
}

func TestStore_SaveGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := testRun(1, "success")
			want.Output = []byte("income_tax_tu\n0\n")
			require.NoError(t, s.Save(ctx, want))

			got, err := s.Get(ctx, want.ID)
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.True(t, want.Started.Equal(got.Started))
			assert.True(t, want.PolicyDate.Equal(got.PolicyDate))
			assert.Equal(t, want.Duration, got.Duration)
			assert.Equal(t, want.Targets, got.Targets)
			assert.Equal(t, want.Output, got.Output)
			assert.Equal(t, "abc123", got.RegistryVersion)

			_, err = s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.Error(t, s.Save(ctx, &Run{}))
		})
	}
}

func TestStore_ListAndCount(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				status := "success"
				if i%2 == 0 {
					status = "data"
				}
				require.NoError(t, s.Save(ctx, testRun(i, status)))
			}

			runs, err := s.List(ctx, nil)
			require.NoError(t, err)
			require.Len(t, runs, 5)
			assert.Equal(t, "run-05", runs[0].ID)

			runs, err = s.List(ctx, &Query{Status: "data"})
			require.NoError(t, err)
			assert.Len(t, runs, 2)

			runs, err = s.List(ctx, &Query{Limit: 2, Offset: 1})
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "run-04", runs[0].ID)

			since := base.Add(3 * time.Hour)
			n, err := s.Count(ctx, &Query{Since: &since})
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 6; i++ {
				require.NoError(t, s.Save(ctx, testRun(i, "success")))
			}

			n, err := s.DeleteBefore(ctx, base.Add(3*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			n, err = s.DeleteOldest(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			runs, err := s.List(ctx, nil)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "run-06", runs[0].ID)
			assert.Equal(t, "run-05", runs[1].ID)

			n, err = s.DeleteOldest(ctx, 10)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestSQLiteStore_CgoDriver(t *testing.T) {
	s := newSQLite(t, "sqlite3")
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testRun(1, "success")))
	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewRun(t *testing.T) {
	data, err := table.NewTable(table.NewInt("tax_unit_id", []int64{1, 2}))
	require.NoError(t, err)
	out, err := table.NewTable(table.NewFloat("tax", []float64{1, 2.5}))
	require.NoError(t, err)
	req := engine.Request{Targets: []string{"tax"}, Date: rules.Date(2020, 1, 1), Data: data}

	run, err := NewRun(req, &engine.Result{RunID: "r1", Started: base, Duration: time.Second, Partitions: 2, Table: out}, nil, "v1", true)
	require.NoError(t, err)
	assert.Equal(t, "r1", run.ID)
	assert.Equal(t, "success", run.Status)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, "tax\n1\n2.5\n", string(run.Output))

	failed, err := NewRun(req, nil, &engine.DataError{Rule: "tax", Message: "bad"}, "v1", true)
	require.NoError(t, err)
	assert.NotEmpty(t, failed.ID)
	assert.Equal(t, "data", failed.Status)
	assert.NotEmpty(t, failed.Error)
	assert.Empty(t, failed.Output)

	canceled, err := NewRun(req, nil, context.Canceled, "v1", false)
	require.NoError(t, err)
	assert.Equal(t, "canceled", canceled.Status)
}
