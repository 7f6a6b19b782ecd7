package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"notiontable/internal/formatter"
	"notiontable/internal/table"
)

// CSVSink writes a header row followed by one record per table row.
type CSVSink struct {
	w io.WriteCloser
}

// NewCSVSink creates a CSV sink writing to w.
func NewCSVSink(w io.WriteCloser) *CSVSink {
	return &CSVSink{w: w}
}

// Write writes t as CSV. Absent cells are empty fields.
func (s *CSVSink) Write(ctx context.Context, t *table.Table) (int, error) {
	cw := csv.NewWriter(s.w)

	if err := cw.Write(t.Columns()); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, t.Width())

	written := 0
	for _, values := range t.Rows() {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		for i, v := range values {
			record[i] = formatter.FormatCell(v)
		}

		if err := cw.Write(record); err != nil {
			return written, fmt.Errorf("failed to write csv row %d: %w", written, err)
		}

		written++
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("failed to flush csv: %w", err)
	}

	return written, nil
}

// Close closes the underlying writer.
func (s *CSVSink) Close() error {
	return s.w.Close()
}
