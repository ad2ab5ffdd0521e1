package main

import (
	"strings"
	"testing"

	"mercator-hq/taxsim/pkg/lawbook"
)

func TestPlanListing(t *testing.T) {
	a := testApp(t)
	eng, err := a.engine(nil)
	if err != nil {
		t.Fatalf("engine() error = %v", err)
	}
	plan, err := eng.Plan([]string{"n_adults_tu"}, policyDate, lawbook.Schema())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	listing := planListing(plan)
	if len(listing.Rows) != 2 {
		t.Fatalf("expected 2 steps, got %d: %v", len(listing.Rows), listing.Rows)
	}

	adult, count := listing.Rows[0], listing.Rows[1]
	if adult[2] != "adult" || count[2] != "n_adults_tu" {
		t.Errorf("unexpected order: %v", listing.Rows)
	}
	if adult[1] != "0" || count[1] != "1" {
		t.Errorf("unexpected layers: %s, %s", adult[1], count[1])
	}
	if !strings.HasPrefix(adult[7], "age") {
		t.Errorf("adult inputs = %q", adult[7])
	}
}

func TestRuleListing(t *testing.T) {
	reg, err := lawbook.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	all := 0
	for _, name := range reg.Names() {
		all += len(reg.Variants(name))
	}
	current := reg.ValidAt(policyDate)

	if got := len(ruleListing(current).Rows); got != len(current) {
		t.Errorf("listing has %d rows, want %d", got, len(current))
	}
	if len(current) > all {
		t.Errorf("%d rules valid at a date but only %d variants", len(current), all)
	}

	// child_benefit has more than one variant
	if got := len(reg.Variants("child_benefit")); got < 2 {
		t.Errorf("child_benefit variants = %d, want at least 2", got)
	}
}

func TestParamListing(t *testing.T) {
	store, err := lawbook.Parameters()
	if err != nil {
		t.Fatalf("Parameters() error = %v", err)
	}

	listing, err := paramListing(store.At(policyDate), store, "child_benefit.")
	if err != nil {
		t.Fatalf("paramListing() error = %v", err)
	}
	if len(listing.Rows) == 0 {
		t.Fatal("expected child benefit parameters")
	}

	var found bool
	for _, row := range listing.Rows {
		if !strings.HasPrefix(row[0], "child_benefit.") {
			t.Errorf("key %q does not match prefix", row[0])
		}
		if row[0] == "child_benefit.amount_by_rank" {
			found = true
			if row[1] != "list" {
				t.Errorf("kind = %q, want list", row[1])
			}
		}
	}
	if !found {
		t.Error("child_benefit.amount_by_rank not listed")
	}
}
