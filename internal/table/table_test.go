package table

import (
	"reflect"
	"testing"

	"notiontable/internal/models"
)

func record(pairs ...any) *models.Record {
	r := models.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}

	return r
}

func TestNew(t *testing.T) {
	tbl := New()
	if tbl == nil {
		t.Fatal("New returned nil")
	}

	if tbl.Len() != 0 || tbl.Width() != 0 {
		t.Errorf("empty table = %dx%d, want 0x0", tbl.Len(), tbl.Width())
	}
}

func TestTable_Append_UnionOfColumns(t *testing.T) {
	tbl := FromRecords([]*models.Record{
		record("Name", "a", "id", "p1"),
		record("Score", 2.0, "id", "p2"),
		record("Name", "c", "Score", 3.0, "id", "p3"),
	})

	wantCols := []string{"Name", "id", "Score"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, wantCols) {
		t.Errorf("Columns() = %v, want %v", got, wantCols)
	}

	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	names, ok := tbl.Column("Name")
	if !ok {
		t.Fatal("Column(Name) missing")
	}

	if want := []models.Value{"a", nil, "c"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Column(Name) = %v, want %v", names, want)
	}

	scores, _ := tbl.Column("Score")
	if want := []models.Value{nil, 2.0, 3.0}; !reflect.DeepEqual(scores, want) {
		t.Errorf("Column(Score) = %v, want %v", scores, want)
	}

	ids, _ := tbl.Column("id")
	if want := []models.Value{"p1", "p2", "p3"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Column(id) = %v, want %v", ids, want)
	}
}

func TestTable_Row(t *testing.T) {
	tbl := FromRecords([]*models.Record{
		record("A", "x"),
		record("B", true),
	})

	row := tbl.Row(0)
	if got := row.Columns(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Row(0).Columns() = %v", got)
	}

	if v, ok := row.Get("B"); !ok || v != nil {
		t.Errorf("Row(0)[B] = %v, %v; want nil, true", v, ok)
	}

	if tbl.Row(5) != nil {
		t.Error("Row(5) should be nil for out of range")
	}
}

func TestTable_Rows(t *testing.T) {
	tbl := FromRecords([]*models.Record{
		record("A", "x", "B", 1.0),
		record("B", 2.0),
	})

	want := [][]models.Value{
		{"x", 1.0},
		{nil, 2.0},
	}

	if got := tbl.Rows(); !reflect.DeepEqual(got, want) {
		t.Errorf("Rows() = %v, want %v", got, want)
	}
}

func TestTable_Value(t *testing.T) {
	tbl := FromRecords([]*models.Record{record("A", "x")})

	tests := []struct {
		name   string
		column string
		want   models.Value
		row    int
	}{
		{name: "hit", row: 0, column: "A", want: "x"},
		{name: "unknown column", row: 0, column: "Z", want: nil},
		{name: "negative row", row: -1, column: "A", want: nil},
		{name: "row past end", row: 1, column: "A", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tbl.Value(tt.row, tt.column); got != tt.want {
				t.Errorf("Value(%d, %q) = %v, want %v", tt.row, tt.column, got, tt.want)
			}
		})
	}
}

func TestTable_ColumnIsACopy(t *testing.T) {
	tbl := FromRecords([]*models.Record{record("A", "x")})

	col, _ := tbl.Column("A")
	col[0] = "mutated"

	if got := tbl.Value(0, "A"); got != "x" {
		t.Errorf("table mutated through Column(): got %v", got)
	}
}
