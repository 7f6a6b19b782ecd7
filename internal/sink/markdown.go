package sink

import (
	"context"
	"fmt"
	"io"

	"notiontable/internal/formatter"
	"notiontable/internal/logger"
	"notiontable/internal/table"
	"notiontable/pkg/metadata"
)

// MarkdownSink renders the table as markdown followed by a signed metadata block.
type MarkdownSink struct {
	w            io.WriteCloser
	logger       *logger.Logger
	databaseID   string
	maxCellWidth int
}

// NewMarkdownSink creates a markdown sink writing to w.
func NewMarkdownSink(w io.WriteCloser, databaseID string, maxCellWidth int, log *logger.Logger) *MarkdownSink {
	if log == nil {
		log = logger.Discard()
	}

	return &MarkdownSink{w: w, logger: log, databaseID: databaseID, maxCellWidth: maxCellWidth}
}

// Write renders and signs t.
func (s *MarkdownSink) Write(ctx context.Context, t *table.Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	content := formatter.RenderMarkdown(t, s.maxCellWidth)

	signed, meta := metadata.Sign(content, metadata.Metadata{
		DatabaseID: s.databaseID,
		Rows:       t.Len(),
	})

	if _, err := io.WriteString(s.w, signed); err != nil {
		return 0, fmt.Errorf("failed to write markdown: %w", err)
	}

	s.logger.Debug("markdown export signed", "run_id", meta.RunID, "hash", meta.Hash)

	return t.Len(), nil
}

// Close closes the underlying writer.
func (s *MarkdownSink) Close() error {
	return s.w.Close()
}
