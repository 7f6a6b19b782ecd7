package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notiontable/internal/models"

	"github.com/araddon/dateparse"
)

// Transformer converts typed property values into normalized values.
// It holds no state between calls besides its diagnostic sink.
type Transformer struct {
	diagnostics DiagnosticSink
	location    *time.Location
}

// NewTransformer creates a transformer that reports to sink.
// A nil sink discards diagnostics.
func NewTransformer(sink DiagnosticSink) *Transformer {
	if sink == nil {
		sink = DiscardDiagnostics
	}

	return &Transformer{
		diagnostics: sink,
		location:    time.UTC,
	}
}

// Parse normalizes one property value.
func (t *Transformer) Parse(prop models.PropertyValue) models.Value {
	return t.ParseNamed("", prop)
}

// ParseNamed normalizes one property value; name only labels diagnostics.
func (t *Transformer) ParseNamed(name string, prop models.PropertyValue) models.Value {
	c := parseCall{t: t, name: name, prop: prop}

	switch prop.Type {
	case models.TypeTitle, models.TypeRichText:
		return c.text()
	case models.TypeSelect:
		return c.selectName()
	case models.TypeMultiSelect:
		return c.multiSelect()
	case models.TypeNumber:
		return c.number()
	case models.TypeCheckbox:
		return c.checkbox()
	case models.TypeURL, models.TypeEmail, models.TypePhoneNumber:
		return c.str()
	case models.TypeDate:
		return c.date()
	case models.TypeCreatedTime, models.TypeLastEditedTime:
		return c.timestamp()
	case models.TypeFormula, models.TypeRollup:
		return c.computed()
	case models.TypeRelation:
		return c.relation()
	case models.TypePeople:
		return c.people()
	case models.TypeFiles:
		return c.files()
	case models.TypeStatus:
		return c.status()
	default:
		c.report(fmt.Errorf("%w: %q", ErrUnsupportedType, string(prop.Type)))
		return nil
	}
}

// parseCall carries one property through its handler.
type parseCall struct {
	t    *Transformer
	name string
	prop models.PropertyValue
}

func (c parseCall) report(err error) {
	c.t.diagnostics.Report(Diagnostic{
		Property: c.name,
		Type:     c.prop.Type,
		Err:      err,
	})
}

// decode unmarshals the payload into dst. It returns false, after reporting,
// when the payload does not have the shape the type requires.
func (c parseCall) decode(dst any) bool {
	if err := json.Unmarshal(c.prop.Payload, dst); err != nil {
		c.report(fmt.Errorf("%w: %w", ErrMalformedPayload, err))
		return false
	}

	return true
}

func (c parseCall) text() models.Value {
	if c.prop.IsAbsent() {
		return ""
	}

	var runs []models.RichText
	if !c.decode(&runs) {
		return ""
	}

	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(run.PlainText)
	}

	return sb.String()
}

func (c parseCall) selectName() models.Value {
	if c.prop.IsAbsent() {
		return ""
	}

	var opt models.SelectOption
	if !c.decode(&opt) || opt.Name == nil {
		return ""
	}

	return *opt.Name
}

func (c parseCall) multiSelect() models.Value {
	names := []string{}
	if c.prop.IsAbsent() {
		return names
	}

	var opts []models.SelectOption
	if !c.decode(&opts) {
		return names
	}

	for _, opt := range opts {
		names = append(names, deref(opt.Name))
	}

	return names
}

func (c parseCall) number() models.Value {
	if c.prop.IsAbsent() {
		return nil
	}

	v, err := decodeExact(c.prop.Payload)
	if err != nil {
		c.report(fmt.Errorf("%w: %w", ErrMalformedPayload, err))
		return nil
	}

	switch v.(type) {
	case float64, int64:
		return v
	}

	c.report(fmt.Errorf("%w: expected number, got %T", ErrMalformedPayload, v))

	return nil
}

func (c parseCall) checkbox() models.Value {
	if c.prop.IsAbsent() {
		return nil
	}

	var b bool
	if !c.decode(&b) {
		return nil
	}

	return b
}

func (c parseCall) str() models.Value {
	if c.prop.IsAbsent() {
		return nil
	}

	var s string
	if !c.decode(&s) {
		return nil
	}

	return s
}

func (c parseCall) date() models.Value {
	if c.prop.IsAbsent() {
		return nil
	}

	var d models.DateValue
	if !c.decode(&d) {
		return nil
	}

	hasEnd := d.End != nil && *d.End != ""
	if d.Start == nil && !hasEnd {
		return nil
	}

	loc := c.t.location
	if d.TimeZone != nil && *d.TimeZone != "" {
		if tz, err := time.LoadLocation(*d.TimeZone); err == nil {
			loc = tz
		}
	}

	var start time.Time

	if d.Start != nil {
		var ok bool
		if start, ok = c.parseTime(*d.Start, loc); !ok {
			return nil
		}
	}

	if !hasEnd {
		return start
	}

	end, ok := c.parseTime(*d.End, loc)
	if !ok {
		return nil
	}

	// An open start keeps Start zero.
	return models.DateRange{Start: start, End: end}
}

func (c parseCall) timestamp() models.Value {
	if c.prop.IsAbsent() {
		return nil
	}

	var s string
	if !c.decode(&s) {
		return nil
	}

	ts, ok := c.parseTime(s, c.t.location)
	if !ok {
		return nil
	}

	return ts
}

func (c parseCall) parseTime(s string, loc *time.Location) (time.Time, bool) {
	ts, err := dateparse.ParseIn(strings.TrimSpace(s), loc)
	if err != nil {
		c.report(fmt.Errorf("%w %q: %w", ErrInvalidDate, s, err))
		return time.Time{}, false
	}

	return ts, true
}

// computed returns the formula or rollup result found under the nested type
// tag, decoded but not normalized further.
func (c parseCall) computed() models.Value {
	if c.prop.IsAbsent() {
		return nil
	}

	var payload models.Computed
	if !c.decode(&payload) {
		return nil
	}

	var nested string
	if raw, ok := payload["type"]; !ok || json.Unmarshal(raw, &nested) != nil || nested == "" {
		return nil
	}

	raw, ok := payload[nested]
	if !ok {
		return nil
	}

	result, err := decodeExact(raw)
	if err != nil {
		c.report(fmt.Errorf("%w: %w", ErrMalformedPayload, err))
		return nil
	}

	return result
}

// maxExactFloat is the largest magnitude below which every integer is a float64.
const maxExactFloat = 1 << 53

// decodeExact decodes raw JSON like json.Unmarshal into any, except that
// integers too large for a float64 come back as int64 with their exact value.
func decodeExact(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return exactNumbers(v), nil
}

func exactNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil && (i > maxExactFloat || i < -maxExactFloat) {
			return i
		}

		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = exactNumbers(item)
		}
	case []any:
		for i, item := range val {
			val[i] = exactNumbers(item)
		}
	}

	return v
}

func (c parseCall) relation() models.Value {
	ids := []string{}
	if c.prop.IsAbsent() {
		return ids
	}

	var refs []models.PageReference
	if !c.decode(&refs) {
		return ids
	}

	for _, ref := range refs {
		ids = append(ids, deref(ref.ID))
	}

	return ids
}

func (c parseCall) people() models.Value {
	names := []string{}
	if c.prop.IsAbsent() {
		return names
	}

	var people []models.Person
	if !c.decode(&people) {
		return names
	}

	for _, p := range people {
		if p.Name != nil {
			names = append(names, *p.Name)
			continue
		}

		names = append(names, deref(p.ID))
	}

	return names
}

func (c parseCall) files() models.Value {
	urls := []string{}
	if c.prop.IsAbsent() {
		return urls
	}

	var files []models.FileObject
	if !c.decode(&files) {
		return urls
	}

	for _, f := range files {
		switch f.Type {
		case "file":
			urls = append(urls, linkURL(f.File))
		case "external":
			urls = append(urls, linkURL(f.External))
		}
	}

	return urls
}

func (c parseCall) status() models.Value {
	if c.prop.IsAbsent() {
		return nil
	}

	var opt models.SelectOption
	if !c.decode(&opt) || opt.Name == nil {
		return nil
	}

	return *opt.Name
}

func linkURL(l *models.FileLink) string {
	if l == nil {
		return ""
	}

	return deref(l.URL)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
