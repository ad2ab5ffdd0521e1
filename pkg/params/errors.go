package params

import (
	"fmt"
	"strings"
	"time"
)

// ParseError represents an error in a parameter file.
// It includes line and column information for precise error reporting.
type ParseError struct {
	// File is the path of the file that failed to parse
	File string

	// Line is the line number where the error occurred (1-indexed)
	Line int

	// Column is the column number where the error occurred (1-indexed)
	Column int

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parameter parse error")
	if e.File != "" {
		fmt.Fprintf(&b, " in %q", e.File)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// LoadError represents a file system error while loading parameters.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load parameters from %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load parameters from %q: %s", e.Path, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// DuplicateError indicates a parameter defined in more than one file.
type DuplicateError struct {
	Key   string
	Files []string
}

// Error implements the error interface.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("parameter %q defined more than once (%s)", e.Key, strings.Join(e.Files, ", "))
}

// MissingError indicates a parameter with no value at the snapshot date.
type MissingError struct {
	Key  string
	Date time.Time
}

// Error implements the error interface.
func (e *MissingError) Error() string {
	return fmt.Sprintf("parameter %q has no value at %s", e.Key, e.Date.Format("2006-01-02"))
}

// TypeError indicates a parameter read as the wrong kind.
type TypeError struct {
	Key  string
	Want string
	Got  ValueKind
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("parameter %q: expected %s, got %s", e.Key, e.Want, e.Got)
}
