package dataset

import (
	"encoding/json"
	"io"
	"math"

	"mercator-hq/taxsim/pkg/table"
)

// WriteJSON writes t as an array of row objects. Absent optional values and
// non-finite floats are written as null.
func WriteJSON(w io.Writer, t *table.Table) error {
	names := t.Names()
	cols := make([]*table.Column, len(names))
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}

	rows := make([]map[string]any, t.Len())
	for row := range rows {
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			v := c.Value(row)
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			obj[names[i]] = v
		}
		rows[row] = obj
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
