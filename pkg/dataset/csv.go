package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/taxsim/pkg/table"
)

var errEmpty = errors.New("empty value")

// ReadCSV parses r into a table holding the columns of schema, in header
// order. Every schema column must be present in the header.
func ReadCSV(r io.Reader, schema map[string]table.Kind) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("csv input has no header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	var names []string
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := index[name]; dup {
			return nil, &table.DuplicateColumnError{Column: name}
		}
		index[name] = i
		if _, ok := schema[name]; ok {
			names = append(names, name)
		}
	}
	var missing []string
	for name := range schema {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &table.MissingColumnError{Column: missing[0]}
	}

	builders := make([]*builder, len(names))
	for i, name := range names {
		builders[i] = &builder{name: name, kind: schema[name], pos: index[name]}
	}

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", row+1, err)
		}
		row++
		for _, b := range builders {
			if err := b.append(record[b.pos]); err != nil {
				return nil, &ParseError{Column: b.name, Row: row, Value: record[b.pos], Cause: err}
			}
		}
	}

	cols := make([]*table.Column, 0, len(builders))
	for _, b := range builders {
		c, err := b.column()
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return table.Empty(row), nil
	}
	return table.NewTable(cols...)
}

// builder accumulates the values of one column.
type builder struct {
	name    string
	kind    table.Kind
	pos     int
	floats  []float64
	ints    []int64
	bools   []bool
	present []bool
}

func (b *builder) append(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" && b.kind != table.KindOptionalFloat {
		return errEmpty
	}
	switch b.kind {
	case table.KindFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		b.floats = append(b.floats, v)
	case table.KindInt:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		b.ints = append(b.ints, v)
	case table.KindBool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		b.bools = append(b.bools, v)
	case table.KindOptionalFloat:
		if s == "" {
			b.floats = append(b.floats, 0)
			b.present = append(b.present, false)
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		b.floats = append(b.floats, v)
		b.present = append(b.present, true)
	default:
		return fmt.Errorf("unsupported column kind %s", b.kind)
	}
	return nil
}

func (b *builder) column() (*table.Column, error) {
	switch b.kind {
	case table.KindFloat:
		return table.NewFloat(b.name, nonNil(b.floats)), nil
	case table.KindInt:
		return table.NewInt(b.name, nonNil(b.ints)), nil
	case table.KindBool:
		return table.NewBool(b.name, nonNil(b.bools)), nil
	default:
		return table.NewOptionalFloat(b.name, nonNil(b.floats), nonNil(b.present))
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// WriteCSV writes t with a header line. Absent optional values are written as
// empty cells.
func WriteCSV(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w)
	names := t.Names()
	if err := writer.Write(names); err != nil {
		return err
	}

	cols := make([]*table.Column, len(names))
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}
	record := make([]string, len(cols))
	for row := 0; row < t.Len(); row++ {
		for i, c := range cols {
			record[i] = FormatValue(c.Value(row))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatValue renders a cell value as written by WriteCSV.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
