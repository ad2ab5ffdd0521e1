package table

import "fmt"

// LengthMismatchError indicates a column whose row count differs from its table.
type LengthMismatchError struct {
	Column string
	Want   int
	Got    int
}

// Error returns the error message.
func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("column %q: expected %d rows, got %d", e.Column, e.Want, e.Got)
}

// DuplicateColumnError indicates an attempt to add a column under an existing name.
type DuplicateColumnError struct {
	Column string
}

// Error returns the error message.
func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("column %q already exists", e.Column)
}

// MissingColumnError indicates a reference to a column that does not exist.
type MissingColumnError struct {
	Column string
}

// Error returns the error message.
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// KindError indicates a column accessed as the wrong kind.
type KindError struct {
	Column string
	Want   Kind
	Got    Kind
}

// Error returns the error message.
func (e *KindError) Error() string {
	return fmt.Sprintf("column %q: expected %s, got %s", e.Column, e.Want, e.Got)
}
