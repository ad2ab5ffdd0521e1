package entity

import (
	"errors"
	"fmt"
)

// ErrEmptyGroup indicates a group with no member rows. The data model assigns
// every individual to exactly one group, so this is always a hard error.
var ErrEmptyGroup = errors.New("empty group")

// LengthError indicates an input vector whose length does not match the index.
type LengthError struct {
	Operation string
	Want      int
	Got       int
}

// Error returns the error message.
func (e *LengthError) Error() string {
	return fmt.Sprintf("%s: expected %d values, got %d", e.Operation, e.Want, e.Got)
}

// OpError indicates an aggregation operator that does not apply to the column kind.
type OpError struct {
	Op   Op
	Kind string
}

// Error returns the error message.
func (e *OpError) Error() string {
	return fmt.Sprintf("aggregation %s not defined for %s values", e.Op, e.Kind)
}

// NestingError indicates a tax unit whose members belong to more than one household.
type NestingError struct {
	TaxUnit    int64
	Households []int64
}

// Error returns the error message.
func (e *NestingError) Error() string {
	return fmt.Sprintf("tax unit %d spans households %v", e.TaxUnit, e.Households)
}
