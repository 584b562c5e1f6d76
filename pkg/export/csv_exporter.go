package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Cell is one rendered scoresheet value. Fill is an optional hex color used
// by renderers that support it (grade cells carry their criterion color).
type Cell struct {
	Text string
	Fill string
}

// Sheet defines tabular export content in display order.
type Sheet struct {
	Title   string
	Headers []string
	Rows    [][]Cell
}

// CSVExporter renders a sheet into CSV bytes. Colors are ignored.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the sheet.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	if len(sheet.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(sheet.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(sheet.Headers))
		for i := range sheet.Headers {
			if i < len(row) {
				record[i] = row[i].Text
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
