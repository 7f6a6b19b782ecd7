package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// NormalizeWhitespace replaces runs of whitespace, newlines included, with a single space.
func (s *StringHelper) NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString shortens str to at most maxWidth display columns, ending in "...".
// A non-positive maxWidth disables truncation.
func (s *StringHelper) TruncateString(str string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(str) <= maxWidth {
		return str
	}

	return runewidth.Truncate(str, maxWidth, "...")
}
