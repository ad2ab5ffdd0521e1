package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"mercator-hq/taxsim/pkg/dataset"
	"mercator-hq/taxsim/pkg/table"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("format", fmt.Sprintf("unsupported output format %q (valid: text, json, csv)", s))
	}
}

// Listing is a small table of strings, used for the rule, plan and parameter
// listings.
type Listing struct {
	Columns []string
	Rows    [][]string
}

// Append adds a row.
func (l *Listing) Append(values ...string) {
	l.Rows = append(l.Rows, values)
}

// records returns the listing as objects keyed by column.
func (l *Listing) records() []map[string]string {
	out := make([]map[string]string, len(l.Rows))
	for i, row := range l.Rows {
		rec := make(map[string]string, len(l.Columns))
		for j, col := range l.Columns {
			if j < len(row) {
				rec[col] = row[j]
			}
		}
		out[i] = rec
	}
	return out
}

// Formatter formats command output. Formatters understand *table.Table and
// *Listing values and fall back to a generic rendering for anything else.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text. Tables and listings are
// written as tab-aligned columns.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	return render(f, data)
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *table.Table:
		return writeAligned(w, v.Names(), tableRows(v))
	case *Listing:
		return writeAligned(w, v.Columns, v.Rows)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	return render(f, data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *table.Table:
		return dataset.WriteJSON(w, v)
	case *Listing:
		data = v.records()
	}
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats output as CSV with a header line.
type CSVFormatter struct{}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	return render(f, data)
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *table.Table:
		return dataset.WriteCSV(w, v)
	case *Listing:
		cw := csv.NewWriter(w)
		if err := cw.Write(v.Columns); err != nil {
			return err
		}
		if err := cw.WriteAll(v.Rows); err != nil {
			return err
		}
		return cw.Error()
	default:
		return fmt.Errorf("cannot format %T as csv", data)
	}
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

func render(f Formatter, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tableRows(t *table.Table) [][]string {
	names := t.Names()
	cols := make([]*table.Column, len(names))
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}
	rows := make([][]string, t.Len())
	for r := range rows {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = dataset.FormatValue(c.Value(r))
		}
		rows[r] = row
	}
	return rows
}

func writeAligned(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
