package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"notiontable/internal/formatter"
	"notiontable/internal/models"
	"notiontable/internal/table"
)

// JSONLinesSink writes one JSON object per row, keys in column order.
type JSONLinesSink struct {
	w io.WriteCloser
}

// NewJSONLinesSink creates a JSON Lines sink writing to w.
func NewJSONLinesSink(w io.WriteCloser) *JSONLinesSink {
	return &JSONLinesSink{w: w}
}

// Write writes every row of t. Absent cells are null.
func (s *JSONLinesSink) Write(ctx context.Context, t *table.Table) (int, error) {
	enc := json.NewEncoder(s.w)
	enc.SetEscapeHTML(false)

	columns := t.Columns()

	written := 0
	for _, values := range t.Rows() {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		row := models.NewRecord()
		for i, col := range columns {
			row.Set(col, formatter.JSONValue(values[i]))
		}

		if err := enc.Encode(row); err != nil {
			return written, fmt.Errorf("failed to encode row %d: %w", written, err)
		}

		written++
	}

	return written, nil
}

// Close closes the underlying writer.
func (s *JSONLinesSink) Close() error {
	return s.w.Close()
}
