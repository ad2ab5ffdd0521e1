// Package dataset reads and writes columnar tables as CSV and JSON.
//
// Input files carry one row per individual with a header line. ReadCSV
// parses the columns named in a schema into typed columns; other columns are
// ignored. An empty cell is absent in an optional_float column and an error
// everywhere else.
package dataset
