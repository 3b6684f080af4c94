package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Dataset is a table with a fixed header row. Rows are positional and always
// as wide as Headers.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// NewDataset starts an empty table.
func NewDataset(headers ...string) *Dataset {
	return &Dataset{Headers: headers}
}

// Append adds one row.
func (d *Dataset) Append(values ...string) error {
	if len(values) != len(d.Headers) {
		return fmt.Errorf("row has %d values, want %d", len(values), len(d.Headers))
	}
	d.Rows = append(d.Rows, values)
	return nil
}

// CSVExporter writes datasets as RFC 4180 CSV. Cells that a spreadsheet would
// evaluate as formulas are prefixed with a single quote.
type CSVExporter struct {
	// BOM prepends a UTF-8 byte order mark so Excel detects the encoding.
	BOM bool
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render returns the encoded dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the dataset to w.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("csv requires at least one header")
	}
	if e.BOM {
		if _, err := io.WriteString(w, "\ufeff"); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(data.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return fmt.Errorf("row %d has %d values, want %d", n, len(row), len(data.Headers))
		}
		for i, cell := range row {
			record[i] = neutralize(cell)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", n, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func neutralize(v string) string {
	trimmed := strings.TrimLeft(v, " ")
	if trimmed == "" {
		return v
	}
	if strings.ContainsRune("=+-@\t\r", rune(trimmed[0])) {
		return "'" + v
	}
	return v
}
