package normalizer

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"notiontable/internal/models"
)

const testPageID = "page-1"

func decodePages(t *testing.T, raw string) []*models.Page {
	t.Helper()

	var pages []*models.Page
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		t.Fatalf("failed to decode pages: %v", err)
	}

	return pages
}

func TestNewProcessor(t *testing.T) {
	p := NewProcessor(nil)
	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
}

func TestProcessor_BuildRecord(t *testing.T) {
	pages := decodePages(t, `[{
		"object": "page",
		"id": "page-1",
		"properties": {
			"Zeta":  {"id": "z", "type": "number", "number": 1},
			"Alpha": {"id": "a", "type": "title", "title": [{"plain_text": "Row"}]},
			"Tags":  {"id": "t", "type": "multi_select", "multi_select": [{"name": "x"}]}
		}
	}]`)

	record := NewProcessor(nil).BuildRecord(pages[0])

	wantCols := []string{"Zeta", "Alpha", "Tags", "id"}
	if got := record.Columns(); !reflect.DeepEqual(got, wantCols) {
		t.Errorf("Columns() = %v, want %v (page order, id last)", got, wantCols)
	}

	if v, _ := record.Get("Alpha"); v != "Row" {
		t.Errorf("Alpha = %v, want Row", v)
	}

	if v, _ := record.Get("id"); v != testPageID {
		t.Errorf("id = %v, want %s", v, testPageID)
	}
}

func TestProcessor_BuildRecord_IDCollision(t *testing.T) {
	pages := decodePages(t, `[{
		"id": "page-1",
		"properties": {
			"id":   {"type": "rich_text", "rich_text": [{"plain_text": "user value"}]},
			"Name": {"type": "title", "title": [{"plain_text": "n"}]}
		}
	}]`)

	record := NewProcessor(nil).BuildRecord(pages[0])

	if v, _ := record.Get("id"); v != testPageID {
		t.Errorf("id = %v, want page id to overwrite the property", v)
	}

	if got := record.Columns(); !reflect.DeepEqual(got, []string{"id", "Name"}) {
		t.Errorf("Columns() = %v, want [id Name]", got)
	}
}

func TestProcessor_BuildRecord_MissingID(t *testing.T) {
	page := models.NewPage("")

	record := NewProcessor(nil).BuildRecord(page)

	v, ok := record.Get("id")
	if !ok || v != nil {
		t.Errorf("id = %v, %v; want nil, true", v, ok)
	}
}

func TestProcessor_Process_EndToEnd(t *testing.T) {
	pages := decodePages(t, `[
		{"id": "p1", "properties": {
			"title":  {"type": "title", "title": [{"plain_text": "First"}]},
			"number": {"type": "number", "number": 1}
		}},
		{"id": "p2", "properties": {
			"title":  {"type": "title", "title": [{"plain_text": "Second"}]},
			"number": {"type": "number", "number": null}
		}}
	]`)

	tbl := NewProcessor(nil).Process(pages)

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}

	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"title", "number", "id"}) {
		t.Errorf("Columns() = %v", got)
	}

	titles, _ := tbl.Column("title")
	if want := []models.Value{"First", "Second"}; !reflect.DeepEqual(titles, want) {
		t.Errorf("title = %v, want %v", titles, want)
	}

	numbers, _ := tbl.Column("number")
	if want := []models.Value{1.0, nil}; !reflect.DeepEqual(numbers, want) {
		t.Errorf("number = %v, want %v", numbers, want)
	}

	ids, _ := tbl.Column("id")
	if want := []models.Value{"p1", "p2"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("id = %v, want %v", ids, want)
	}
}

func TestProcessor_Process_UnsupportedTypeDoesNotAbort(t *testing.T) {
	pages := decodePages(t, `[
		{"id": "p1", "properties": {
			"Ticket": {"type": "unique_id", "unique_id": {"prefix": "T", "number": 1}},
			"When":   {"type": "date", "date": {"start": "not-a-date"}},
			"Name":   {"type": "title", "title": [{"plain_text": "ok"}]}
		}}
	]`)

	collector := NewCollector()
	tbl := NewProcessor(collector).Process(pages)

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}

	if v := tbl.Value(0, "Ticket"); v != nil {
		t.Errorf("Ticket = %v, want nil", v)
	}

	if v := tbl.Value(0, "When"); v != nil {
		t.Errorf("When = %v, want nil", v)
	}

	if v := tbl.Value(0, "Name"); v != "ok" {
		t.Errorf("Name = %v, want ok", v)
	}

	diags := collector.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", diags)
	}

	if !errors.Is(diags[0].Err, ErrUnsupportedType) || diags[0].Property != "Ticket" {
		t.Errorf("first diagnostic = %v", diags[0])
	}

	if !errors.Is(diags[1].Err, ErrInvalidDate) || diags[1].Property != "When" {
		t.Errorf("second diagnostic = %v", diags[1])
	}
}

func TestProcessor_Process_Empty(t *testing.T) {
	tbl := NewProcessor(nil).Process(nil)
	if tbl.Len() != 0 || tbl.Width() != 0 {
		t.Errorf("empty input produced %dx%d table", tbl.Len(), tbl.Width())
	}
}
