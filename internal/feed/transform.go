package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"eventfeed/internal/model"
)

// Field lists the column identifiers that may hold one logical value,
// most preferred first.
type Field []string

// Columns of the events table. The readable name comes first and the
// stable column code second.
var (
	FieldStart       = Field{"Start", "c-xM1UXlWtET"}
	FieldDescription = Field{"Description", "c-CuhtPto9h7"}
	FieldSignUpLink  = Field{"Sign Up Link", "c-oQ9f2MSLrG"}
	FieldGraphicURL  = Field{"GraphicURL", "c-65xmsGtRJz"}
)

// Display layouts for a parsed start instant.
const (
	DateLayout = "January 2, 2006"
	TimeLayout = "3:04 PM"
)

// startLayouts are tried in order when parsing the start column.
var startLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Resolve returns the first present value among the field's keys.
func Resolve(values map[string]any, f Field) (string, bool) {
	for _, key := range f {
		v, ok := values[key]
		if !ok {
			continue
		}
		if s, ok := stringValue(v); ok {
			return s, true
		}
	}
	return "", false
}

// stringValue renders a cell value. Hyperlink cells arrive as objects
// with a url field.
func stringValue(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case map[string]any:
		u, ok := t["url"]
		if !ok {
			return "", false
		}
		return stringValue(u)
	case []any:
		// Multi-value cells: the first usable entry.
		for _, e := range t {
			if s, ok := stringValue(e); ok {
				return s, true
			}
		}
		return "", false
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Transform maps one row to its display fields. Dates are formatted in loc;
// a nil loc means time.Local.
func Transform(row model.RawRow, loc *time.Location) model.DisplayEvent {
	if loc == nil {
		loc = time.Local
	}

	var ev model.DisplayEvent
	ev.StartDateTime, _ = Resolve(row.Values, FieldStart)
	ev.Description, _ = Resolve(row.Values, FieldDescription)
	ev.SignUpURL, _ = Resolve(row.Values, FieldSignUpLink)
	ev.GraphicURL, _ = Resolve(row.Values, FieldGraphicURL)

	if ev.StartDateTime == "" {
		ev.FormattedDate = model.DateNotAvailable
		ev.FormattedTime = model.TimeNotAvailable
		return ev
	}

	t, err := ParseStart(ev.StartDateTime, loc)
	if err != nil {
		ev.FormattedDate = model.InvalidDate
		ev.FormattedTime = model.InvalidTime
		return ev
	}
	t = t.In(loc)
	ev.FormattedDate = t.Format(DateLayout)
	ev.FormattedTime = t.Format(TimeLayout)

	return ev
}

// ParseStart parses a start column value. Values without a zone are
// read in loc.
func ParseStart(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", s)
}
