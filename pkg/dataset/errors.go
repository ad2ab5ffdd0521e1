package dataset

import "fmt"

// ParseError reports a cell that does not parse as its column's kind.
type ParseError struct {
	Column string

	// Row is the 1-based data row, not counting the header.
	Row int

	Value string
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot parse %q: %v", e.Column, e.Row, e.Value, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
