// Package table provides the column-oriented table that records are folded into.
package table

import "notiontable/internal/models"

// Table is an ordered collection of named columns of equal length.
// Columns appear in the order they were first seen; rows keep append order.
type Table struct {
	index   map[string]int
	columns []string
	cells   [][]models.Value
	rows    int
}

// New creates an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// FromRecords folds records, in order, into a new table.
func FromRecords(records []*models.Record) *Table {
	t := New()
	for _, r := range records {
		t.Append(r)
	}

	return t
}

// Append adds one row. Columns new to the table are back-filled with nil for
// earlier rows; columns the record lacks get nil for this row.
func (t *Table) Append(r *models.Record) {
	if t.index == nil {
		t.index = make(map[string]int)
	}

	for _, col := range r.Columns() {
		if _, ok := t.index[col]; ok {
			continue
		}

		t.index[col] = len(t.columns)
		t.columns = append(t.columns, col)
		t.cells = append(t.cells, make([]models.Value, t.rows, t.rows+1))
	}

	for i, col := range t.columns {
		v, _ := r.Get(col)
		t.cells[i] = append(t.cells[i], v)
	}

	t.rows++
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.columns)
}

// Columns returns the column names in table order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)

	return out
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of one column's values.
func (t *Table) Column(name string) ([]models.Value, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}

	out := make([]models.Value, t.rows)
	copy(out, t.cells[i])

	return out, true
}

// Value returns the cell at (row, column); nil when either is out of range.
func (t *Table) Value(row int, column string) models.Value {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= t.rows {
		return nil
	}

	return t.cells[i][row]
}

// Row returns row i as a record holding every table column.
func (t *Table) Row(i int) *models.Record {
	if i < 0 || i >= t.rows {
		return nil
	}

	r := models.NewRecord()
	for c, col := range t.columns {
		r.Set(col, t.cells[c][i])
	}

	return r
}

// Rows returns the table row-major, cells in Columns() order.
func (t *Table) Rows() [][]models.Value {
	out := make([][]models.Value, t.rows)
	for i := range out {
		row := make([]models.Value, len(t.columns))
		for c := range t.columns {
			row[c] = t.cells[c][i]
		}

		out[i] = row
	}

	return out
}
