package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/results"
)

func TestPruneCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	cfgPath := filepath.Join(dir, "taxsim.yaml")
	yaml := fmt.Sprintf("results:\n  backend: sqlite\n  sqlite:\n    path: %s\n  retention:\n    days: 30\n", dbPath)
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	store, err := results.NewSQLiteStore(&cfg.Results.SQLite)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	now := time.Now()
	for i, started := range []time.Time{now.AddDate(0, 0, -90), now.AddDate(0, 0, -60), now.Add(-time.Hour)} {
		run := &results.Run{
			ID:         fmt.Sprintf("run-%d", i),
			Started:    started,
			PolicyDate: policyDate,
			Status:     "success",
			Targets:    []string{"income_tax_tu"},
		}
		if err := store.Save(context.Background(), run); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	store.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"prune", "--config", cfgPath})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("prune error = %v", err)
	}
	if !strings.Contains(out.String(), "✓ Pruned 2 runs") {
		t.Errorf("output = %q", out.String())
	}

	store, err = results.NewSQLiteStore(&cfg.Results.SQLite)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()
	count, err := store.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}
