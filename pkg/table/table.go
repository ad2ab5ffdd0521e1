package table

import (
	"fmt"
)

// Table is an ordered collection of equal-length columns.
//
// Columns are append-only: once a column is added under a name, it can never be
// replaced. A Table is not safe for concurrent mutation, but concurrent reads
// of a fully built table are safe.
type Table struct {
	rows    int
	order   []string
	columns map[string]*Column
}

// NewTable creates a table from the given columns.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{rows: -1, columns: make(map[string]*Column, len(cols))}
	for _, c := range cols {
		if err := t.Add(c); err != nil {
			return nil, err
		}
	}
	if t.rows < 0 {
		t.rows = 0
	}
	return t, nil
}

// Empty creates an empty table with a fixed row count.
func Empty(rows int) *Table {
	return &Table{rows: rows, columns: make(map[string]*Column)}
}

// Add appends a column. It fails if a column with the same name exists or the
// row count differs from the table's.
func (t *Table) Add(c *Column) error {
	if c == nil {
		return fmt.Errorf("column cannot be nil")
	}
	if c.Name() == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if c.Kind() == KindInvalid {
		return &KindError{Column: c.Name(), Want: KindFloat, Got: KindInvalid}
	}
	if _, exists := t.columns[c.Name()]; exists {
		return &DuplicateColumnError{Column: c.Name()}
	}
	if t.rows < 0 {
		t.rows = c.Len()
	}
	if c.Len() != t.rows {
		return &LengthMismatchError{Column: c.Name(), Want: t.rows, Got: c.Len()}
	}
	t.columns[c.Name()] = c
	t.order = append(t.order, c.Name())
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.order) }

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Schema returns the name → kind mapping of all columns.
func (t *Table) Schema() map[string]Kind {
	out := make(map[string]Kind, len(t.columns))
	for name, c := range t.columns {
		out[name] = c.Kind()
	}
	return out
}

// Select returns a new table containing only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := Empty(t.rows)
	for _, name := range names {
		c, ok := t.columns[name]
		if !ok {
			return nil, &MissingColumnError{Column: name}
		}
		if err := out.Add(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Take gathers the given rows from every column into a new table.
func (t *Table) Take(rows []int) *Table {
	out := Empty(len(rows))
	for _, name := range t.order {
		// Names are unique and lengths match by construction.
		_ = out.Add(t.columns[name].Take(rows))
	}
	return out
}

// Scatter reassembles partition tables into one table of n rows. parts[i] holds
// the values for the original rows listed in rows[i]. All parts must share the
// same column names and kinds; the column order of the first part is kept.
func Scatter(n int, parts []*Table, rows [][]int) (*Table, error) {
	if len(parts) != len(rows) {
		return nil, fmt.Errorf("scatter: %d parts but %d row sets", len(parts), len(rows))
	}
	if len(parts) == 0 {
		return Empty(n), nil
	}

	out := Empty(n)
	for _, name := range parts[0].order {
		proto := parts[0].columns[name]
		merged := &Column{name: name, kind: proto.kind}
		switch proto.kind {
		case KindFloat:
			merged.floats = make([]float64, n)
		case KindInt:
			merged.ints = make([]int64, n)
		case KindBool:
			merged.bools = make([]bool, n)
		case KindOptionalFloat:
			merged.floats = make([]float64, n)
			merged.present = make([]bool, n)
		}

		for i, part := range parts {
			c, ok := part.columns[name]
			if !ok {
				return nil, &MissingColumnError{Column: name}
			}
			if c.kind != proto.kind {
				return nil, &KindError{Column: name, Want: proto.kind, Got: c.kind}
			}
			if c.Len() != len(rows[i]) {
				return nil, &LengthMismatchError{Column: name, Want: len(rows[i]), Got: c.Len()}
			}
			switch c.kind {
			case KindFloat:
				scatter(merged.floats, c.floats, rows[i])
			case KindInt:
				scatter(merged.ints, c.ints, rows[i])
			case KindBool:
				scatter(merged.bools, c.bools, rows[i])
			case KindOptionalFloat:
				scatter(merged.floats, c.floats, rows[i])
				scatter(merged.present, c.present, rows[i])
			}
		}

		if err := out.Add(merged); err != nil {
			return nil, err
		}
	}
	return out, nil
}
