package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"mercator-hq/taxsim/pkg/telemetry/health"
)

func TestChecker_BundledParametersHealthy(t *testing.T) {
	a := testApp(t)
	a.cfg.Results.Enabled = true

	report := newChecker(a, policyDate, time.Second).Run(context.Background())
	if !report.Healthy() {
		t.Fatalf("report not healthy: %+v", report)
	}
	if report.Status != health.StatusOK {
		t.Errorf("Status = %q, want %q", report.Status, health.StatusOK)
	}

	var names []string
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "parameters,plan,registry,results" {
		t.Errorf("checks = %s", got)
	}
}

func TestChecker_MissingParameterDirFails(t *testing.T) {
	a := testApp(t)
	a.cfg.Parameters.Dir = t.TempDir() + "/missing"

	report := newChecker(a, policyDate, time.Second).Run(context.Background())
	if report.Healthy() {
		t.Fatal("expected unhealthy report")
	}
	for _, c := range report.Checks {
		if c.Name == "parameters" && c.Status != health.StatusUnhealthy {
			t.Errorf("parameters status = %q", c.Status)
		}
	}
}

func TestReportListing(t *testing.T) {
	report := health.Report{
		Status: health.StatusDegraded,
		Checks: []health.CheckResult{
			{Name: "registry", Status: health.StatusOK, Required: true},
			{Name: "results", Status: health.StatusDegraded, Message: "locked"},
		},
	}

	listing := reportListing(report)
	if len(listing.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(listing.Rows))
	}
	if listing.Rows[0][2] != "yes" || listing.Rows[1][2] != "no" {
		t.Errorf("required column = %q, %q", listing.Rows[0][2], listing.Rows[1][2])
	}
	if last := listing.Rows[2]; last[0] != "overall" || last[1] != health.StatusDegraded {
		t.Errorf("overall row = %v", last)
	}
}
