package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/lawbook"
	"mercator-hq/taxsim/pkg/results"
	"mercator-hq/taxsim/pkg/rules"
)

const personsCSV = `tax_unit_id,household_id,age,wage,capital_income,rent,disability_degree
1,1,30,1000,0,400,0
2,2,30,0,0,400,0
`

var policyDate = rules.Date(2020, 1, 1)

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Results.Backend = "memory"
	a, err := newApp(cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func testRunner(t *testing.T, store results.Store, opts runOptions) (*runner, *bytes.Buffer) {
	t.Helper()
	a := testApp(t)
	provider, err := a.parameters()
	if err != nil {
		t.Fatalf("parameters() error = %v", err)
	}
	if opts.Date.IsZero() {
		opts.Date = policyDate
	}
	if len(opts.Targets) == 0 {
		opts.Targets = lawbook.DefaultTargets()
	}
	if opts.Format == "" {
		opts.Format = cli.FormatCSV
	}
	r, err := newRunner(a, provider, store, opts)
	if err != nil {
		t.Fatalf("newRunner() error = %v", err)
	}
	out := &bytes.Buffer{}
	r.stdout = out
	r.stderr = io.Discard
	return r, out
}

func csvLines(out *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(out.String()), "\n")
}

func TestRun_DefaultTargets(t *testing.T) {
	r, out := testRunner(t, nil, runOptions{Keys: true})
	if err := r.load(strings.NewReader(personsCSV), "-"); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if err := r.evaluate(context.Background()); err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}

	lines := csvLines(out)
	wantHeader := "tax_unit_id,household_id," + strings.Join(lawbook.DefaultTargets(), ",")
	if lines[0] != wantHeader {
		t.Errorf("header = %q, want %q", lines[0], wantHeader)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 2 data rows, got %d", len(lines)-1)
	}

	// Earnings leave a need that housing benefit covers; without earnings
	// unemployment assistance pays the whole standard need.
	if !strings.HasSuffix(lines[1], ",320,0,0") {
		t.Errorf("row 1 = %q, want housing benefit 320 and no assistance", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",0,0,832") {
		t.Errorf("row 2 = %q, want assistance 832", lines[2])
	}
}

func TestRun_OnlyPlannedColumnsRequired(t *testing.T) {
	r, out := testRunner(t, nil, runOptions{Targets: []string{"housing_benefit_granted_hh"}, Format: cli.FormatCSV})
	if _, ok := r.schema["disability_degree"]; ok {
		t.Error("schema should not require disability_degree for housing benefit")
	}

	in := "tax_unit_id,household_id,age,wage,rent\n1,1,30,1000,400\n"
	if err := r.load(strings.NewReader(in), "-"); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if err := r.evaluate(context.Background()); err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}
	if got := out.String(); got != "housing_benefit_granted_hh\n320\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRun_UnknownTargetIsConfigError(t *testing.T) {
	a := testApp(t)
	_, err := newRunner(a, nil, nil, runOptions{Date: policyDate, Targets: []string{"wealth_tax"}})
	if err == nil {
		t.Fatal("expected error for unknown target")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfig)
	}
}

func TestRun_BadCellIsDataError(t *testing.T) {
	r, _ := testRunner(t, nil, runOptions{})
	in := strings.Replace(personsCSV, "1,1,30,1000", "1,1,30,lots", 1)

	err := r.load(strings.NewReader(in), "-")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if code := cli.ExitCode(err); code != cli.ExitData {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitData)
	}
}

func TestRun_RecordsRuns(t *testing.T) {
	store := results.NewMemoryStore()
	r, _ := testRunner(t, store, runOptions{Keys: true, KeepOutput: true})
	if err := r.load(strings.NewReader(personsCSV), "-"); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if err := r.evaluate(context.Background()); err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}

	bad := strings.Replace(personsCSV, "400,0\n2", "400,120\n2", 1)
	if err := r.load(strings.NewReader(bad), "-"); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	err := r.evaluate(context.Background())
	if code := cli.ExitCode(err); code != cli.ExitData {
		t.Fatalf("evaluate() error = %v, exit code %d, want %d", err, code, cli.ExitData)
	}

	runs, err := store.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	byStatus := map[string]*results.Run{}
	for _, run := range runs {
		byStatus[run.Status] = run
	}
	ok, failed := byStatus["success"], byStatus["data"]
	if ok == nil || failed == nil {
		t.Fatalf("expected a success and a data run, got %+v", runs)
	}
	if ok.Rows != 2 || len(ok.Output) == 0 || !ok.PolicyDate.Equal(policyDate) {
		t.Errorf("unexpected success run: %+v", ok)
	}
	if failed.Error == "" || len(failed.Output) != 0 {
		t.Errorf("unexpected failed run: %+v", failed)
	}
}

func TestRun_NoKeysAndDebug(t *testing.T) {
	r, out := testRunner(t, nil, runOptions{Targets: []string{"income_tax_tu"}})
	if err := r.load(strings.NewReader(personsCSV), "-"); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if err := r.evaluate(context.Background()); err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}
	if lines := csvLines(out); lines[0] != "income_tax_tu" {
		t.Errorf("header = %q, want only the target", lines[0])
	}

	out.Reset()
	r.opts.Debug = true
	if err := r.evaluate(context.Background()); err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}
	header := csvLines(out)[0]
	for _, col := range []string{"tax_unit_id", "wage", "taxable_income_tu", "income_tax_tu"} {
		if !strings.Contains(header, col) {
			t.Errorf("debug header %q lacks %q", header, col)
		}
	}
}

func TestRun_Progress(t *testing.T) {
	r, _ := testRunner(t, nil, runOptions{Progress: true, Partitions: 2})
	progress := &bytes.Buffer{}
	r.stderr = progress

	if err := r.load(strings.NewReader(personsCSV), "-"); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if err := r.evaluate(context.Background()); err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}
	if !strings.Contains(progress.String(), "(2/2)") {
		t.Errorf("progress output = %q", progress.String())
	}
}

func TestWithKeys(t *testing.T) {
	r, _ := testRunner(t, nil, runOptions{})
	if err := r.load(strings.NewReader(personsCSV), "-"); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	wage, _ := r.data.Select("wage")

	out, err := withKeys(r.data, wage)
	if err != nil {
		t.Fatalf("withKeys() error = %v", err)
	}
	got := strings.Join(out.Names(), ",")
	if got != "tax_unit_id,household_id,wage" {
		t.Errorf("columns = %s", got)
	}
}
