package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrInvalidRequest indicates a request that cannot be evaluated at all.
	ErrInvalidRequest = errors.New("invalid evaluation request")

	// ErrNoParameters indicates a plan needs parameters but the engine has no
	// parameter source.
	ErrNoParameters = errors.New("no parameter source configured")
)

// DataError reports input data a rule cannot process: a raw column of the
// wrong kind, a value outside a rule's domain, or a group-level output that
// is not constant within its groups.
type DataError struct {
	// Rule is the rule that rejected the data. Empty for request-level checks.
	Rule string

	// Column is the offending column.
	Column string

	// Rows is a sample of offending row indexes in the request table.
	Rows []int

	// Total is the number of offending rows, which may exceed len(Rows).
	Total int

	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DataError) Error() string {
	var b strings.Builder
	b.WriteString("data error")
	if e.Rule != "" {
		fmt.Fprintf(&b, " in rule %q", e.Rule)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if len(e.Rows) > 0 {
		fmt.Fprintf(&b, " (rows %v", e.Rows)
		if e.Total > len(e.Rows) {
			fmt.Fprintf(&b, " of %d", e.Total)
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *DataError) Unwrap() error {
	return e.Cause
}

// EvaluationError reports a rule that failed or broke its contract: it
// returned an error, panicked, or produced a column of the wrong kind or
// length.
type EvaluationError struct {
	Rule    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		if e.Message != "" {
			return fmt.Sprintf("rule %q: %s: %v", e.Rule, e.Message, e.Cause)
		}
		return fmt.Sprintf("rule %q: %v", e.Rule, e.Cause)
	}
	return fmt.Sprintf("rule %q: %s", e.Rule, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates a rule exceeded Config.RuleTimeout.
type TimeoutError struct {
	Rule    string
	Timeout time.Duration
	Elapsed time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rule %q: took %v, limit %v", e.Rule, e.Elapsed, e.Timeout)
}

// sample returns the first n rows and the total count.
func sample(rows []int, n int) ([]int, int) {
	if len(rows) > n {
		return append([]int(nil), rows[:n]...), len(rows)
	}
	return rows, len(rows)
}
