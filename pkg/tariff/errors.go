package tariff

import (
	"errors"
	"fmt"
)

// ErrNegativeBase is matched by BaseError values rejecting negative inputs.
var ErrNegativeBase = errors.New("negative tariff base")

// ScheduleError indicates a malformed schedule.
type ScheduleError struct {
	Message string
	Index   int
	Jump    float64
}

// Error returns the error message.
func (e *ScheduleError) Error() string {
	if e.Jump != 0 {
		return fmt.Sprintf("invalid schedule: %s %d (jump %g)", e.Message, e.Index, e.Jump)
	}
	if e.Index > 0 {
		return fmt.Sprintf("invalid schedule: %s (index %d)", e.Message, e.Index)
	}
	return fmt.Sprintf("invalid schedule: %s", e.Message)
}

// BaseError indicates an input the tariff does not define a value for.
type BaseError struct {
	Value   float64
	Message string
}

// Error returns the error message.
func (e *BaseError) Error() string {
	return fmt.Sprintf("tariff base %g: %s", e.Value, e.Message)
}

// Is reports whether the error is a negative-base rejection.
func (e *BaseError) Is(target error) bool {
	return target == ErrNegativeBase && e.Value < 0
}

// ColumnError reports the rows of a vector that could not be evaluated.
// Column names the evaluated vector when the caller knows it.
type ColumnError struct {
	Column string
	Rows   []int
	Cause  error
}

// Error returns the error message.
func (e *ColumnError) Error() string {
	sample := e.Rows
	if len(sample) > 5 {
		sample = sample[:5]
	}
	if e.Column != "" {
		return fmt.Sprintf("%d rows of %s outside tariff domain (rows %v): %v", len(e.Rows), e.Column, sample, e.Cause)
	}
	return fmt.Sprintf("%d rows outside tariff domain (rows %v): %v", len(e.Rows), sample, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ColumnError) Unwrap() error {
	return e.Cause
}

// InColumn names the column of a ColumnError in err's chain and returns err.
// Other errors are returned unchanged.
func InColumn(err error, column string) error {
	var colErr *ColumnError
	if errors.As(err, &colErr) && colErr.Column == "" {
		colErr.Column = column
	}
	return err
}
