// Package normalizer converts fetched pages into flat records and tables.
package normalizer

import (
	"notiontable/internal/models"
	"notiontable/internal/table"
)

// Processor builds records from pages and folds them into a table.
type Processor struct {
	transformer *Transformer
}

// NewProcessor creates a processor whose property diagnostics go to sink.
func NewProcessor(sink DiagnosticSink) *Processor {
	return &Processor{
		transformer: NewTransformer(sink),
	}
}

// NewProcessorWithTransformer creates a processor around an existing transformer.
func NewProcessorWithTransformer(t *Transformer) *Processor {
	return &Processor{transformer: t}
}

// BuildRecord converts one page into one record. Properties keep the page's
// order; the page id is assigned last to the reserved id column and replaces
// any property that is itself named "id".
func (p *Processor) BuildRecord(page *models.Page) *models.Record {
	record := models.NewRecord()

	page.EachProperty(func(name string, value models.PropertyValue) {
		record.Set(name, p.transformer.ParseNamed(name, value))
	})

	var id models.Value
	if page != nil && page.ID != "" {
		id = page.ID
	}

	record.Set(models.IDColumn, id)

	return record
}

// Process converts pages, in order, into a table.
func (p *Processor) Process(pages []*models.Page) *table.Table {
	t := table.New()

	for _, page := range pages {
		t.Append(p.BuildRecord(page))
	}

	return t
}
