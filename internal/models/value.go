package models

import (
	"encoding/json"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IDColumn is the reserved column holding each page's identifier.
const IDColumn = "id"

// Value is a normalized property value. It is always one of:
// nil, string, []string, float64, int64, bool, time.Time, DateRange,
// or for formula and rollup properties the raw decoded JSON value
// (string, float64, int64, bool, map[string]any, []any).
// Numbers are float64 unless they are integers beyond 2^53, which stay int64.
type Value = any

// DateRange is a date property with an end. A zero Start means the
// property had an end but no start.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Record is one output row: an ordered mapping from column name to value.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

// Set assigns a column; re-assigning keeps the column's original position.
func (r *Record) Set(column string, value Value) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}

	r.fields.Set(column, value)
}

// Get returns the value of a column and whether the column exists.
func (r *Record) Get(column string) (Value, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}

	return r.fields.Get(column)
}

// Columns returns the column names in insertion order.
func (r *Record) Columns() []string {
	if r == nil || r.fields == nil {
		return nil
	}

	cols := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		cols = append(cols, pair.Key)
	}

	return cols
}

// Len returns the number of columns.
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}

	return r.fields.Len()
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(r.fields)
}
