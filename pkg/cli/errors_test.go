package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mercator-hq/taxsim/pkg/dataset"
	"mercator-hq/taxsim/pkg/engine"
	"mercator-hq/taxsim/pkg/graph"
	"mercator-hq/taxsim/pkg/rules"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "results.backend",
		Message: "missing required field",
	}

	expected := "config error in results.backend: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	err = NewConfigError("", "failed to load config")
	if err.Error() != "config error: failed to load config" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("run", underlyingErr)

	expected := "command run failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("disk full"), ExitFailure},
		{"config error", NewConfigError("format", "bad"), ExitConfig},
		{"canceled", NewCommandError("run", context.Canceled), ExitCanceled},
		{"data error", NewCommandError("run", &engine.DataError{Rule: "adult", Rows: []int{3}}), ExitData},
		{"csv parse error", &dataset.ParseError{Column: "wage", Row: 2, Value: "x"}, ExitData},
		{"rule error", fmt.Errorf("evaluate: %w", &engine.EvaluationError{Rule: "adult", Cause: errors.New("boom")}), ExitRule},
		{"unknown rule", &rules.UnknownRuleError{Name: "nope"}, ExitConfig},
		{"cycle", &graph.CycleError{Path: []string{"a", "b", "a"}}, ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
