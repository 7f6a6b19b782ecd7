package models

import "encoding/json"

// Wire shapes of the typed property payloads. Fields the normalizer does not
// read are omitted.

// RichText is one text run of a title or rich_text property.
type RichText struct {
	PlainText string `json:"plain_text"`
	Href      string `json:"href,omitempty"`
}

// SelectOption is the payload of select and status properties and an
// element of multi_select.
type SelectOption struct {
	Name  *string `json:"name"`
	ID    string  `json:"id,omitempty"`
	Color string  `json:"color,omitempty"`
}

// DateValue is the payload of a date property.
type DateValue struct {
	Start    *string `json:"start"`
	End      *string `json:"end"`
	TimeZone *string `json:"time_zone"`
}

// PageReference is one element of a relation property.
type PageReference struct {
	ID *string `json:"id"`
}

// Person is one element of a people property.
type Person struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

// FileObject is one element of a files property.
type FileObject struct {
	File     *FileLink `json:"file"`
	External *FileLink `json:"external"`
	Type     string    `json:"type"`
	Name     string    `json:"name,omitempty"`
}

// FileLink is the url holder nested under a file object's own tag.
type FileLink struct {
	URL *string `json:"url"`
}

// Computed is the payload of formula and rollup properties: a nested type tag
// plus a same-named field holding the result.
type Computed map[string]json.RawMessage
