// Package formatter renders tables and cell values as text.
package formatter

import (
	"strings"

	"notiontable/internal/table"
	"notiontable/pkg/utils"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth is the narrowest separator a markdown table accepts ("---").
const minColumnWidth = 3

// RenderMarkdown renders t as an aligned GitHub-flavored markdown table.
// Cells wider than maxCellWidth display columns are truncated; 0 disables truncation.
// A table without columns renders as an empty string.
func RenderMarkdown(t *table.Table, maxCellWidth int) string {
	columns := t.Columns()
	if len(columns) == 0 {
		return ""
	}

	strs := utils.NewStringHelper()

	cell := func(s string) string {
		s = strs.TruncateString(strs.NormalizeWhitespace(s), maxCellWidth)
		return strings.ReplaceAll(s, "|", `\|`)
	}

	rows := make([][]string, 0, t.Len()+1)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = cell(col)
	}

	rows = append(rows, header)

	for _, values := range t.Rows() {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cell(FormatCell(v))
		}

		rows = append(rows, row)
	}

	return strings.Join(alignRows(rows), "\n") + "\n"
}

// alignRows pads every cell to its column's display width and inserts the
// separator row after the header.
func alignRows(rows [][]string) []string {
	colCount := 0
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}

	// Calculate max widths (using display width)
	colWidths := make([]int, colCount)
	for i := range colWidths {
		colWidths[i] = minColumnWidth
	}

	for _, row := range rows {
		for i, content := range row {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(content))
		}
	}

	result := make([]string, 0, len(rows)+1)

	for i, row := range rows {
		result = append(result, joinRow(row, colWidths))

		if i == 0 {
			sep := make([]string, colCount)
			for j, w := range colWidths {
				sep[j] = strings.Repeat("-", w)
			}

			result = append(result, joinRow(sep, colWidths))
		}
	}

	return result
}

func joinRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		// Pad with spaces based on display width
		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
