package arbitration

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition is matched by DefinitionError values.
var ErrInvalidDefinition = errors.New("invalid arbitration definition")

// DefinitionError reports a malformed favorability or precedence definition.
type DefinitionError struct {
	Name    string
	Message string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("arbitration %q: %s", e.Name, e.Message)
}

// Is reports whether target is ErrInvalidDefinition.
func (e *DefinitionError) Is(target error) bool { return target == ErrInvalidDefinition }

// InvariantError reports an arbitration outcome that violates its
// post-condition: a tax unit with zero or several chosen schemes, or a
// household with more than one granted transfer. It indicates a bug in the
// rule content, never bad input data.
type InvariantError struct {
	Name string

	// Group is the key of the offending tax unit or household.
	Group int64

	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("arbitration %q violated its invariant for group %d: %s", e.Name, e.Group, e.Message)
}
