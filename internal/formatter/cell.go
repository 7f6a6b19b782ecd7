package formatter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"notiontable/internal/models"
)

// ListSeparator joins list values rendered into a single cell.
const ListSeparator = ", "

// DateLayout is used for times that carry no time-of-day.
const DateLayout = "2006-01-02"

// FormatCell renders a normalized value as plain text. Absent values render empty.
func FormatCell(v models.Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ListSeparator)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return FormatTime(val)
	case models.DateRange:
		return rangeBound(val.Start) + "/" + FormatTime(val.End)
	case map[string]any, []any:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}

		return string(raw)
	default:
		return fmt.Sprint(val)
	}
}

// FormatTime renders a UTC midnight as a bare date and anything else as RFC 3339.
func FormatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}

	return t.Format(time.RFC3339)
}

// JSONValue converts a normalized value into something encoding/json renders
// the same way FormatCell prints it: times become strings, ranges become
// {"start","end"} objects, everything else passes through.
func JSONValue(v models.Value) any {
	switch val := v.(type) {
	case time.Time:
		return FormatTime(val)
	case models.DateRange:
		var start any
		if !val.Start.IsZero() {
			start = FormatTime(val.Start)
		}

		return map[string]any{
			"start": start,
			"end":   FormatTime(val.End),
		}
	default:
		return val
	}
}

// rangeBound formats a range start, leaving an open start empty.
func rangeBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return FormatTime(t)
}
