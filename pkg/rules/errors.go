package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConfiguration is matched by every error raised for a faulty rule set.
// Configuration errors are detected before any row is processed.
var ErrConfiguration = errors.New("rule configuration error")

// RuleError represents an invalid rule declaration.
type RuleError struct {
	// Rule is the name of the offending rule (empty if unnamed)
	Rule string

	// Message describes the problem
	Message string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("invalid rule: %s", e.Message)
	}
	return fmt.Sprintf("invalid rule %q: %s", e.Rule, e.Message)
}

// Is matches ErrConfiguration.
func (e *RuleError) Is(target error) bool { return target == ErrConfiguration }

// AmbiguousRuleError indicates two variants of one rule with overlapping
// validity intervals.
type AmbiguousRuleError struct {
	// Name is the rule name
	Name string

	// First and Second are the overlapping intervals
	First  Interval
	Second Interval
}

// Error implements the error interface.
func (e *AmbiguousRuleError) Error() string {
	return fmt.Sprintf("ambiguous rule %q: variants %s and %s overlap", e.Name, e.First, e.Second)
}

// Is matches ErrConfiguration.
func (e *AmbiguousRuleError) Is(target error) bool { return target == ErrConfiguration }

// UnknownRuleError indicates that no variant of a rule covers a policy date.
type UnknownRuleError struct {
	// Name is the requested rule name
	Name string

	// Date is the policy date
	Date time.Time

	// Registered is false when the name has no variant at all
	Registered bool
}

// Error implements the error interface.
func (e *UnknownRuleError) Error() string {
	if !e.Registered {
		return fmt.Sprintf("unknown rule %q", e.Name)
	}
	return fmt.Sprintf("rule %q has no variant valid at %s", e.Name, e.Date.Format(DateLayout))
}

// Is matches ErrConfiguration.
func (e *UnknownRuleError) Is(target error) bool { return target == ErrConfiguration }

// IntervalGapError indicates an uncovered stretch between two variants.
type IntervalGapError struct {
	// Name is the rule name
	Name string

	// Gap is the uncovered interval
	Gap Interval
}

// Error implements the error interface.
func (e *IntervalGapError) Error() string {
	return fmt.Sprintf("rule %q has no variant for %s", e.Name, e.Gap)
}

// Is matches ErrConfiguration.
func (e *IntervalGapError) Is(target error) bool { return target == ErrConfiguration }

// UndeclaredInputError indicates that a rule read an input it did not declare.
type UndeclaredInputError struct {
	Rule  string
	Input string
}

// Error implements the error interface.
func (e *UndeclaredInputError) Error() string {
	if e.Input == ParametersInput {
		return fmt.Sprintf("rule %q reads parameters without declaring %q", e.Rule, ParametersInput)
	}
	return fmt.Sprintf("rule %q reads undeclared input %q", e.Rule, e.Input)
}

// Is matches ErrConfiguration.
func (e *UndeclaredInputError) Is(target error) bool { return target == ErrConfiguration }

// ValidationErrors collects every problem found by Registry.Validate.
type ValidationErrors []error

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d rule set problems: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap returns the collected errors.
func (e ValidationErrors) Unwrap() []error { return e }
