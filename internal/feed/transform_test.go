package feed

import (
	"strings"
	"testing"
	"time"

	"eventfeed/internal/model"
)

func row(values map[string]any) model.RawRow {
	return model.RawRow{Values: values}
}

func TestTransform_StartAbsent(t *testing.T) {
	ev := Transform(row(map[string]any{"Description": "x"}), time.UTC)

	if ev.FormattedDate != "Date not available" {
		t.Errorf("FormattedDate = %q", ev.FormattedDate)
	}
	if ev.FormattedTime != "Time not available" {
		t.Errorf("FormattedTime = %q", ev.FormattedTime)
	}
	if ev.HasStart() {
		t.Error("HasStart() = true for absent start")
	}
}

func TestTransform_StartInvalid(t *testing.T) {
	ev := Transform(row(map[string]any{"Start": "not-a-date"}), time.UTC)

	if ev.FormattedDate != "Invalid Date" {
		t.Errorf("FormattedDate = %q", ev.FormattedDate)
	}
	if ev.FormattedTime != "Invalid Time" {
		t.Errorf("FormattedTime = %q", ev.FormattedTime)
	}
	if ev.StartDateTime != "not-a-date" {
		t.Errorf("StartDateTime = %q", ev.StartDateTime)
	}
}

func TestTransform_StartValid(t *testing.T) {
	ev := Transform(row(map[string]any{"Start": "2025-03-01T18:30:00Z"}), time.UTC)

	if ev.FormattedDate != "March 1, 2025" {
		t.Errorf("FormattedDate = %q, want March 1, 2025", ev.FormattedDate)
	}
	if ev.FormattedTime != "6:30 PM" {
		t.Errorf("FormattedTime = %q, want 6:30 PM", ev.FormattedTime)
	}
	if !ev.HasStart() {
		t.Error("HasStart() = false for valid start")
	}
}

func TestTransform_TimeIsTwelveHourInDisplayZone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	ev := Transform(row(map[string]any{"c-xM1UXlWtET": "2025-03-01T03:05:00Z"}), loc)

	if ev.FormattedDate != "February 28, 2025" {
		t.Errorf("FormattedDate = %q", ev.FormattedDate)
	}
	if ev.FormattedTime != "10:05 PM" {
		t.Errorf("FormattedTime = %q", ev.FormattedTime)
	}
	if !strings.HasSuffix(ev.FormattedTime, "AM") && !strings.HasSuffix(ev.FormattedTime, "PM") {
		t.Errorf("FormattedTime = %q, want AM/PM suffix", ev.FormattedTime)
	}
}

func TestTransform_AcceptedStartFormats(t *testing.T) {
	tests := []struct {
		in       string
		wantDate string
		wantTime string
	}{
		{"2025-03-01T18:30:00.123Z", "March 1, 2025", "6:30 PM"},
		{"2025-03-01T18:30:00+01:00", "March 1, 2025", "5:30 PM"},
		{"2025-03-01T09:05:00", "March 1, 2025", "9:05 AM"},
		{"2025-03-01 00:00", "March 1, 2025", "12:00 AM"},
		{"2025-12-24", "December 24, 2025", "12:00 AM"},
		{"Sat, 01 Mar 2025 18:30:00 GMT", "March 1, 2025", "6:30 PM"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ev := Transform(row(map[string]any{"Start": tt.in}), time.UTC)
			if ev.FormattedDate != tt.wantDate || ev.FormattedTime != tt.wantTime {
				t.Errorf("got %q / %q, want %q / %q", ev.FormattedDate, ev.FormattedTime, tt.wantDate, tt.wantTime)
			}
		})
	}
}

func TestTransform_FieldResolution(t *testing.T) {
	ev := Transform(row(map[string]any{
		"Description":  "A",
		"c-CuhtPto9h7": "B",
		"c-oQ9f2MSLrG": "https://example.com/signup",
		"c-65xmsGtRJz": "https://example.com/img.png",
	}), time.UTC)

	if ev.Description != "A" {
		t.Errorf("Description = %q, want readable key to win", ev.Description)
	}
	if ev.SignUpURL != "https://example.com/signup" {
		t.Errorf("SignUpURL = %q, want code key fallback", ev.SignUpURL)
	}
	if ev.GraphicURL != "https://example.com/img.png" {
		t.Errorf("GraphicURL = %q", ev.GraphicURL)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   string
		wantOK bool
	}{
		{name: "neither key", values: map[string]any{"Other": "x"}},
		{name: "nil values map", values: nil},
		{name: "readable key", values: map[string]any{"Sign Up Link": "a"}, want: "a", wantOK: true},
		{name: "code key", values: map[string]any{"c-oQ9f2MSLrG": "b"}, want: "b", wantOK: true},
		{name: "null readable falls back", values: map[string]any{"Sign Up Link": nil, "c-oQ9f2MSLrG": "b"}, want: "b", wantOK: true},
		{name: "blank readable falls back", values: map[string]any{"Sign Up Link": "  ", "c-oQ9f2MSLrG": "b"}, want: "b", wantOK: true},
		{name: "hyperlink object", values: map[string]any{"Sign Up Link": map[string]any{"@type": "WebPage", "url": "https://x"}}, want: "https://x", wantOK: true},
		{name: "object without url", values: map[string]any{"Sign Up Link": map[string]any{"name": "n"}}},
		{name: "array takes first usable", values: map[string]any{"Sign Up Link": []any{"", "https://y"}}, want: "https://y", wantOK: true},
		{name: "number", values: map[string]any{"Sign Up Link": float64(42)}, want: "42", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.values, FieldSignUpLink)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTransform_NilLocationUsesLocal(t *testing.T) {
	ev := Transform(row(map[string]any{"Start": "2025-03-01T18:30:00Z"}), nil)
	want := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC).In(time.Local).Format(TimeLayout)
	if ev.FormattedTime != want {
		t.Errorf("FormattedTime = %q, want %q", ev.FormattedTime, want)
	}
}
