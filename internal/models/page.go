// Package models defines the data structures shared by the fetcher, the normalizer and the sinks.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PropertyType is the discriminator naming which kind of payload a property carries.
type PropertyType string

// Recognized property types.
const (
	TypeTitle          PropertyType = "title"
	TypeRichText       PropertyType = "rich_text"
	TypeSelect         PropertyType = "select"
	TypeMultiSelect    PropertyType = "multi_select"
	TypeNumber         PropertyType = "number"
	TypeCheckbox       PropertyType = "checkbox"
	TypeURL            PropertyType = "url"
	TypeEmail          PropertyType = "email"
	TypePhoneNumber    PropertyType = "phone_number"
	TypeDate           PropertyType = "date"
	TypeCreatedTime    PropertyType = "created_time"
	TypeLastEditedTime PropertyType = "last_edited_time"
	TypeFormula        PropertyType = "formula"
	TypeRollup         PropertyType = "rollup"
	TypeRelation       PropertyType = "relation"
	TypePeople         PropertyType = "people"
	TypeFiles          PropertyType = "files"
	TypeStatus         PropertyType = "status"
)

// KnownPropertyTypes returns every property type the normalizer has a handler for.
func KnownPropertyTypes() []PropertyType {
	return []PropertyType{
		TypeTitle, TypeRichText, TypeSelect, TypeMultiSelect, TypeNumber,
		TypeCheckbox, TypeURL, TypeEmail, TypePhoneNumber, TypeDate,
		TypeCreatedTime, TypeLastEditedTime, TypeFormula, TypeRollup,
		TypeRelation, TypePeople, TypeFiles, TypeStatus,
	}
}

// PropertyValue is one typed property of a page.
// Payload holds the raw JSON found under the key named by Type; it is nil
// when that key is missing or null.
type PropertyValue struct {
	ID      string
	Type    PropertyType
	Payload json.RawMessage
}

// NewPropertyValue builds a property by encoding payload under the given type.
// A nil payload produces an absent property.
func NewPropertyValue(typ PropertyType, payload any) (PropertyValue, error) {
	prop := PropertyValue{Type: typ}
	if payload == nil {
		return prop, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return prop, fmt.Errorf("failed to encode %s payload: %w", typ, err)
	}

	if !isNull(raw) {
		prop.Payload = raw
	}

	return prop, nil
}

// IsAbsent reports whether the property carries no payload.
func (p PropertyValue) IsAbsent() bool {
	return p.Payload == nil
}

// UnmarshalJSON decodes {"id": ..., "type": T, T: payload}.
// A property that is not an object, or whose type is not a string, decodes
// with an empty Type (or the raw type text) and no payload, so it surfaces
// as an unsupported property instead of failing the whole page.
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	*p = PropertyValue{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	if raw, ok := fields["id"]; ok {
		// Property ids are informational; a non-string id is ignored.
		_ = json.Unmarshal(raw, &p.ID)
	}

	if raw, ok := fields["type"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &p.Type); err != nil {
			p.Type = PropertyType(bytes.TrimSpace(raw))
			return nil
		}
	}

	if p.Type == "" || p.Type == "type" {
		return nil
	}

	if raw, ok := fields[string(p.Type)]; ok && !isNull(raw) {
		p.Payload = append(json.RawMessage(nil), raw...)
	}

	return nil
}

// MarshalJSON encodes the property in the API's wire shape.
func (p PropertyValue) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, any]()
	if p.ID != "" {
		out.Set("id", p.ID)
	}

	out.Set("type", p.Type)

	if p.Type != "" {
		if p.Payload == nil {
			out.Set(string(p.Type), nil)
		} else {
			out.Set(string(p.Type), p.Payload)
		}
	}

	return json.Marshal(out)
}

// Page is one record of the remote database.
type Page struct {
	Properties     *orderedmap.OrderedMap[string, PropertyValue] `json:"properties"`
	Object         string                                        `json:"object"`
	ID             string                                        `json:"id"`
	CreatedTime    string                                        `json:"created_time,omitempty"`
	LastEditedTime string                                        `json:"last_edited_time,omitempty"`
	URL            string                                        `json:"url,omitempty"`
}

// NewPage creates a page with an empty property set.
func NewPage(id string) *Page {
	return &Page{
		Object:     "page",
		ID:         id,
		Properties: orderedmap.New[string, PropertyValue](),
	}
}

// SetProperty adds or replaces a property, keeping first-insertion order.
func (p *Page) SetProperty(name string, value PropertyValue) {
	if p.Properties == nil {
		p.Properties = orderedmap.New[string, PropertyValue]()
	}

	p.Properties.Set(name, value)
}

// EachProperty calls fn for every property in document order.
func (p *Page) EachProperty(fn func(name string, value PropertyValue)) {
	if p == nil || p.Properties == nil {
		return
	}

	for pair := p.Properties.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// PropertyCount returns the number of properties on the page.
func (p *Page) PropertyCount() int {
	if p == nil || p.Properties == nil {
		return 0
	}

	return p.Properties.Len()
}

func isNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
