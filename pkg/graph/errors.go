package graph

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

// ErrNoTargets is returned when a plan is requested for no outputs.
var ErrNoTargets = errors.New("no target columns requested")

// UnresolvedDependencyError indicates an input that is neither a raw column
// nor a rule valid at the policy date.
type UnresolvedDependencyError struct {
	// Name is the input that could not be resolved
	Name string

	// Chain lists the requesting rules from the target down to the rule that
	// declared Name
	Chain []string

	// Cause is the registry error, if the name is a rule without a variant
	// at the date
	Cause error
}

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	msg := fmt.Sprintf("unresolved dependency %q required by %s", e.Name, strings.Join(e.Chain, " -> "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *UnresolvedDependencyError) Unwrap() error { return e.Cause }

// Is matches rules.ErrConfiguration.
func (e *UnresolvedDependencyError) Is(target error) bool { return target == rules.ErrConfiguration }

// CycleError indicates circular rule dependencies.
type CycleError struct {
	// Path is one cycle, first and last element equal
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Is matches rules.ErrConfiguration.
func (e *CycleError) Is(target error) bool { return target == rules.ErrConfiguration }

// InputKindError indicates a rule declaring another rule's output with a kind
// that rule does not return.
type InputKindError struct {
	Rule     string
	Input    string
	Declared table.Kind
	Returned table.Kind
}

// Error implements the error interface.
func (e *InputKindError) Error() string {
	return fmt.Sprintf("rule %q declares input %q as %s but it returns %s", e.Rule, e.Input, e.Declared, e.Returned)
}

// Is matches rules.ErrConfiguration.
func (e *InputKindError) Is(target error) bool { return target == rules.ErrConfiguration }
