// Package output renders command results as tables, JSON, CSV or Markdown.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates and normalizes a format string. Empty means table.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatCSV):
		return FormatCSV, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Extension returns the file extension conventionally used for format.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// Dataset is a rendered view of a command result. Data is what JSON
// output encodes; Header and Rows feed the tabular formats.
type Dataset struct {
	Title  string
	Header table.Row
	Rows   []table.Row
	// Wide names columns that are truncated in table output.
	Wide []string
	Data any
}

// Write renders ds to w in the requested format.
func Write(w io.Writer, format Format, ds Dataset) error {
	var (
		rendered string
		err      error
	)

	switch format {
	case FormatJSON:
		rendered, err = renderJSON(ds.Data)
	case FormatCSV:
		rendered, err = renderCSV(ds)
	case FormatMarkdown:
		rendered = newTableWriter(ds, false).RenderMarkdown()
	default:
		if len(ds.Rows) == 0 {
			rendered = "No results."
		} else {
			rendered = newTableWriter(ds, true).Render()
		}
	}
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, rendered+"\n"); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// renderCSV writes RFC 4180 CSV. go-pretty's RenderCSV escapes commas
// with a backslash, which CSV readers keep as data.
func renderCSV(ds Dataset) (string, error) {
	var b strings.Builder
	cw := csv.NewWriter(&b)
	if err := cw.Write(csvRecord(ds.Header)); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	for _, row := range ds.Rows {
		if err := cw.Write(csvRecord(row)); err != nil {
			return "", fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func csvRecord(row table.Row) []string {
	record := make([]string, len(row))
	for i, cell := range row {
		if cell != nil {
			record[i] = fmt.Sprint(cell)
		}
	}
	return record
}

// maxCellWidth caps wide columns in terminal tables.
const maxCellWidth = 60

func newTableWriter(ds Dataset, terminal bool) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(ds.Header)
	t.AppendRows(ds.Rows)

	if !terminal {
		return t
	}

	t.SetStyle(table.StyleRounded)
	if ds.Title != "" {
		t.SetTitle(ds.Title)
	}
	if len(ds.Wide) > 0 {
		configs := make([]table.ColumnConfig, 0, len(ds.Wide))
		for _, name := range ds.Wide {
			configs = append(configs, table.ColumnConfig{Name: name, WidthMax: maxCellWidth})
		}
		t.SetColumnConfigs(configs)
	}
	return t
}

func renderJSON(data any) (string, error) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(encoded), nil
}
