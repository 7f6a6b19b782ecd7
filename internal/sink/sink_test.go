package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"notiontable/internal/config"
	"notiontable/internal/models"
	"notiontable/internal/table"
	"notiontable/pkg/metadata"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// sampleTable has two rows with a column only the second row sets.
func sampleTable(t *testing.T) *table.Table {
	t.Helper()

	first := models.NewRecord()
	first.Set("Name", "Alpha")
	first.Set("Score", 3.5)
	first.Set(models.IDColumn, "p1")

	second := models.NewRecord()
	second.Set("Name", "Beta, \"quoted\"")
	second.Set("Score", nil)
	second.Set(models.IDColumn, "p2")
	second.Set("Tags", []string{"x", "y"})

	return table.FromRecords([]*models.Record{first, second})
}

func TestMarkdownSink_Write(t *testing.T) {
	var buf bytes.Buffer

	s := NewMarkdownSink(nopCloser{&buf}, "db-1", 0, nil)

	n, err := s.Write(context.Background(), sampleTable(t))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "| Name ") {
		t.Errorf("Expected markdown table first, got:\n%s", out)
	}

	if ok, err := metadata.Verify(out); !ok || err != nil {
		t.Errorf("Verify() = %v, %v", ok, err)
	}

	meta, _ := metadata.Extract(out)
	if meta == nil || meta.DatabaseID != "db-1" || meta.Rows != 2 {
		t.Errorf("Unexpected metadata: %+v", meta)
	}
}

func TestCSVSink_Write(t *testing.T) {
	var buf bytes.Buffer

	n, err := NewCSVSink(nopCloser{&buf}).Write(context.Background(), sampleTable(t))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	want := [][]string{
		{"Name", "Score", "id", "Tags"},
		{"Alpha", "3.5", "p1", ""},
		{"Beta, \"quoted\"", "", "p2", "x, y"},
	}

	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}

	for i := range want {
		if strings.Join(records[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("record %d = %q, want %q", i, records[i], want[i])
		}
	}
}

func TestJSONLinesSink_Write(t *testing.T) {
	var buf bytes.Buffer

	n, err := NewJSONLinesSink(nopCloser{&buf}).Write(context.Background(), sampleTable(t))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		`{"Name":"Alpha","Score":3.5,"id":"p1","Tags":null}`,
		`{"Name":"Beta, \"quoted\"","Score":null,"id":"p2","Tags":["x","y"]}`,
	}

	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %s", len(want), len(lines), buf.String())
	}

	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %s\nwant %s", i, lines[i], want[i])
		}
	}
}

func TestNew_FileFormats(t *testing.T) {
	for _, format := range []string{config.FormatMarkdown, config.FormatCSV, config.FormatJSONL} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "export."+format)

			out := config.Default().Output
			out.Format = format
			out.Path = path

			s, err := New(context.Background(), Options{Output: out, DatabaseID: "db-1"})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			if _, err := s.Write(context.Background(), sampleTable(t)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			if err := s.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}

			if !strings.Contains(string(data), "Alpha") {
				t.Errorf("export missing data: %s", data)
			}
		})
	}
}

func TestNew_Stdout(t *testing.T) {
	var buf bytes.Buffer

	out := config.Default().Output
	out.Format = config.FormatCSV

	s, err := New(context.Background(), Options{Output: out, Stdout: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := s.Write(context.Background(), sampleTable(t)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "Name,Score,id,Tags") {
		t.Errorf("unexpected stdout output: %s", buf.String())
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		format  string
	}{
		{name: "sql without dsn", format: config.FormatPostgres, wantErr: config.ErrMissingOutputPath},
		{name: "mongo without uri", format: config.FormatMongo, wantErr: config.ErrMissingOutputPath},
		{name: "unknown", format: "xml", wantErr: ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := config.Default().Output
			out.Format = tt.format

			if _, err := New(context.Background(), Options{Output: out}); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocuments(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	r := models.NewRecord()
	r.Set("Name", "Alpha")
	r.Set("When", models.DateRange{Start: day, End: day.AddDate(0, 0, 1)})
	r.Set(models.IDColumn, "p1")

	docs := Documents(table.FromRecords([]*models.Record{r}))
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}

	doc, ok := docs[0].(bson.D)
	if !ok {
		t.Fatalf("Expected bson.D, got %T", docs[0])
	}

	keys := make([]string, len(doc))
	for i, e := range doc {
		keys[i] = e.Key
	}

	if strings.Join(keys, ",") != "Name,When,id" {
		t.Errorf("document keys = %v", keys)
	}

	when, ok := doc[1].Value.(bson.D)
	if !ok || len(when) != 2 || when[0].Key != "start" || when[1].Key != "end" {
		t.Errorf("date range not converted: %#v", doc[1].Value)
	}

	if _, err := bson.Marshal(doc); err != nil {
		t.Errorf("document does not encode: %v", err)
	}
}

func TestDocuments_Empty(t *testing.T) {
	if docs := Documents(table.New()); len(docs) != 0 {
		t.Errorf("Expected no documents, got %d", len(docs))
	}
}
