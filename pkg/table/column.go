package table

import (
	"fmt"
)

// Kind identifies the element type of a column.
type Kind int

const (
	// KindInvalid is the zero value and never a valid column kind.
	KindInvalid Kind = iota

	// KindFloat is a float64 column.
	KindFloat

	// KindInt is an int64 column.
	KindInt

	// KindBool is a boolean column.
	KindBool

	// KindOptionalFloat is a float64 column with an explicit presence mask.
	// An absent value means "not applicable" and is never encoded as NaN.
	KindOptionalFloat
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindOptionalFloat:
		return "optional_float"
	default:
		return "invalid"
	}
}

// ParseKind converts a kind name (as produced by String) back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "float":
		return KindFloat, nil
	case "int":
		return KindInt, nil
	case "bool":
		return KindBool, nil
	case "optional_float":
		return KindOptionalFloat, nil
	default:
		return KindInvalid, fmt.Errorf("unknown column kind %q", s)
	}
}

// Numeric reports whether values of this kind can be summed.
func (k Kind) Numeric() bool {
	return k == KindFloat || k == KindInt
}

// Column is an immutable, named, typed vector of values.
//
// Slices returned by the accessors alias the column's storage and must not be
// modified by callers.
type Column struct {
	name    string
	kind    Kind
	floats  []float64
	ints    []int64
	bools   []bool
	present []bool
}

// NewFloat creates a float column.
func NewFloat(name string, values []float64) *Column {
	return &Column{name: name, kind: KindFloat, floats: values}
}

// NewInt creates an int column.
func NewInt(name string, values []int64) *Column {
	return &Column{name: name, kind: KindInt, ints: values}
}

// NewBool creates a bool column.
func NewBool(name string, values []bool) *Column {
	return &Column{name: name, kind: KindBool, bools: values}
}

// NewOptionalFloat creates a float column with a presence mask.
// Values at absent positions are normalized to zero.
func NewOptionalFloat(name string, values []float64, present []bool) (*Column, error) {
	if len(values) != len(present) {
		return nil, &LengthMismatchError{Column: name, Want: len(values), Got: len(present)}
	}
	for i, ok := range present {
		if !ok {
			values[i] = 0
		}
	}
	return &Column{name: name, kind: KindOptionalFloat, floats: values, present: present}, nil
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column kind.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows.
func (c *Column) Len() int {
	switch c.kind {
	case KindFloat, KindOptionalFloat:
		return len(c.floats)
	case KindInt:
		return len(c.ints)
	case KindBool:
		return len(c.bools)
	default:
		return 0
	}
}

// Named returns a column sharing this column's storage under a different name.
func (c *Column) Named(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Floats returns the values of a float column.
func (c *Column) Floats() ([]float64, error) {
	if c.kind != KindFloat {
		return nil, &KindError{Column: c.name, Want: KindFloat, Got: c.kind}
	}
	return c.floats, nil
}

// Ints returns the values of an int column.
func (c *Column) Ints() ([]int64, error) {
	if c.kind != KindInt {
		return nil, &KindError{Column: c.name, Want: KindInt, Got: c.kind}
	}
	return c.ints, nil
}

// Bools returns the values of a bool column.
func (c *Column) Bools() ([]bool, error) {
	if c.kind != KindBool {
		return nil, &KindError{Column: c.name, Want: KindBool, Got: c.kind}
	}
	return c.bools, nil
}

// Optional returns the values and presence mask of an optional float column.
func (c *Column) Optional() ([]float64, []bool, error) {
	if c.kind != KindOptionalFloat {
		return nil, nil, &KindError{Column: c.name, Want: KindOptionalFloat, Got: c.kind}
	}
	return c.floats, c.present, nil
}

// Value returns the value at row i as an interface for display and export.
// Absent optional values are returned as nil.
func (c *Column) Value(i int) any {
	switch c.kind {
	case KindFloat:
		return c.floats[i]
	case KindInt:
		return c.ints[i]
	case KindBool:
		return c.bools[i]
	case KindOptionalFloat:
		if !c.present[i] {
			return nil
		}
		return c.floats[i]
	default:
		return nil
	}
}

// Float64At returns the value at row i converted to float64. Bools map to 0/1,
// absent optional values report ok=false.
func (c *Column) Float64At(i int) (v float64, ok bool) {
	switch c.kind {
	case KindFloat:
		return c.floats[i], true
	case KindInt:
		return float64(c.ints[i]), true
	case KindBool:
		if c.bools[i] {
			return 1, true
		}
		return 0, true
	case KindOptionalFloat:
		return c.floats[i], c.present[i]
	default:
		return 0, false
	}
}

// Take gathers the given rows into a new column of the same name and kind.
func (c *Column) Take(rows []int) *Column {
	out := &Column{name: c.name, kind: c.kind}
	switch c.kind {
	case KindFloat:
		out.floats = gather(c.floats, rows)
	case KindInt:
		out.ints = gather(c.ints, rows)
	case KindBool:
		out.bools = gather(c.bools, rows)
	case KindOptionalFloat:
		out.floats = gather(c.floats, rows)
		out.present = gather(c.present, rows)
	}
	return out
}

func gather[T any](src []T, rows []int) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = src[r]
	}
	return out
}

func scatter[T any](dst, src []T, rows []int) {
	for i, r := range rows {
		dst[r] = src[i]
	}
}
