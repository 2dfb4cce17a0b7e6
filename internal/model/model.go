package model

// RawRow is one record returned by the table API. Values are keyed by
// column identifier, either a human-readable column name or a stable
// column code; either form may be present for a given column.
type RawRow struct {
	ID     string         `json:"id,omitempty"`
	Href   string         `json:"href,omitempty"`
	Name   string         `json:"name,omitempty"`
	Values map[string]any `json:"values"`
}

// Display sentinels used when the start column cannot produce a value.
const (
	DateNotAvailable = "Date not available"
	TimeNotAvailable = "Time not available"
	InvalidDate      = "Invalid Date"
	InvalidTime      = "Invalid Time"
)

// DisplayEvent is the display-ready view of a RawRow. It is recomputed
// on every render and never stored.
type DisplayEvent struct {
	StartDateTime string `json:"start_date_time,omitempty"`
	Description   string `json:"description,omitempty"`
	SignUpURL     string `json:"sign_up_url,omitempty"`
	GraphicURL    string `json:"graphic_url,omitempty"`

	// FormattedDate and FormattedTime are never empty: they hold either a
	// formatted value or one of the sentinels above.
	FormattedDate string `json:"formatted_date"`
	FormattedTime string `json:"formatted_time"`
}

// HasStart reports whether the start column resolved to a parseable instant.
func (e DisplayEvent) HasStart() bool {
	switch e.FormattedDate {
	case DateNotAvailable, InvalidDate, "":
		return false
	}
	return true
}
