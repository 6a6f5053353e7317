package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is an aligned plain text table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (text, json, csv)", s)
	}
}

// Table is tabular command output. Records holds the structured form used
// for JSON; Rows the stringified cells used for text and CSV.
type Table struct {
	Headers []string
	Rows    [][]string
	Records any
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, t *Table) error
}

// TextFormatter renders a boxed table for terminals.
type TextFormatter struct{}

// FormatTo renders t as an ASCII table.
func (f *TextFormatter) FormatTo(w io.Writer, t *Table) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if len(t.Headers) > 0 {
		tw.AppendHeader(toRow(t.Headers))
	}
	for _, row := range t.Rows {
		tw.AppendRow(toRow(row))
	}
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes t.Records as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, t *Table) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(t.Records)
}

// CSVFormatter formats output as CSV.
type CSVFormatter struct{}

// FormatTo writes the headers and rows as CSV.
func (f *CSVFormatter) FormatTo(w io.Writer, t *Table) error {
	csvWriter := csv.NewWriter(w)
	if len(t.Headers) > 0 {
		if err := csvWriter.Write(t.Headers); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(t.Rows); err != nil {
		return err
	}
	return csvWriter.Error()
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
