package formatter

import (
	"strings"
	"testing"

	"notiontable/internal/models"
	"notiontable/internal/table"
)

// buildTable folds rows of alternating column/value pairs into a table.
func buildTable(t *testing.T, rows ...[]any) *table.Table {
	t.Helper()

	tbl := table.New()

	for _, pairs := range rows {
		if len(pairs)%2 != 0 {
			t.Fatalf("odd number of column/value items: %v", pairs)
		}

		record := models.NewRecord()
		for i := 0; i < len(pairs); i += 2 {
			record.Set(pairs[i].(string), pairs[i+1])
		}

		tbl.Append(record)
	}

	return tbl
}

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name         string
		table        *table.Table
		expected     string
		maxCellWidth int
	}{
		{
			name: "Basic table formatting",
			table: buildTable(t,
				[]any{"Header 1", "val 1", "Header 2", "val 2"},
			),
			expected: `
| Header 1 | Header 2 |
| -------- | -------- |
| val 1    | val 2    |
`,
		},
		{
			name: "Short columns keep minimum separator",
			table: buildTable(t,
				[]any{"H1", "v1", "H2", 2.0},
			),
			expected: `
| H1  | H2  |
| --- | --- |
| v1  | 2   |
`,
		},
		{
			name: "Missing cells render empty",
			table: buildTable(t,
				[]any{"Name", "A"},
				[]any{"Name", "B", "Tags", []string{"x", "y"}},
			),
			expected: `
| Name | Tags |
| ---- | ---- |
| A    |      |
| B    | x, y |
`,
		},
		{
			name: "Mixed CJK and ASCII",
			table: buildTable(t,
				[]any{"Date", "2025-01-01", "Event", "消防處：增至83死。"},
				[]any{"Date", "2025-01-02", "Event", "Short text"},
			),
			// 消(2) 防(2) 處(2) ：(2) 增(2) 至(2) 8(1) 3(1) 死(2) 。(2) = 18 columns.
			expected: `
| Date       | Event              |
| ---------- | ------------------ |
| 2025-01-01 | 消防處：增至83死。 |
| 2025-01-02 | Short text         |
`,
		},
		{
			name: "Pipes escaped and newlines collapsed",
			table: buildTable(t,
				[]any{"Note", "a|b\nnext line"},
			),
			expected: `
| Note           |
| -------------- |
| a\|b next line |
`,
		},
		{
			name: "Truncation",
			table: buildTable(t,
				[]any{"Description", "abcdefghijklmnop"},
			),
			maxCellWidth: 8,
			expected: `
| Descr... |
| -------- |
| abcde... |
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderMarkdown(tt.table, tt.maxCellWidth)

			if strings.TrimSpace(got) != strings.TrimSpace(tt.expected) {
				t.Errorf("RenderMarkdown() = \n%v\nwant \n%v", got, tt.expected)
			}
		})
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	if got := RenderMarkdown(table.New(), 0); got != "" {
		t.Errorf("RenderMarkdown(empty) = %q, want empty", got)
	}
}
