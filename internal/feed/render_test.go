package feed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"eventfeed/internal/model"
)

func render(t *testing.T, st State, cards []Card) string {
	t.Helper()
	var buf bytes.Buffer
	if err := RenderText(&buf, st, cards, 40); err != nil {
		t.Fatalf("RenderText() error = %v", err)
	}
	return buf.String()
}

func TestRenderText_States(t *testing.T) {
	tests := []struct {
		name string
		st   State
		want string
	}{
		{name: "loading", st: State{Phase: PhaseLoading}, want: "Loading…"},
		{name: "error", st: State{Phase: PhaseError, Message: "Server error: 500 - {}"}, want: "Server error: 500 - {}"},
		{name: "empty", st: State{Phase: PhaseLoaded, Items: []model.RawRow{}}, want: "No events found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, tt.st, nil)
			if !strings.HasPrefix(out, HeaderTitle+"\n") {
				t.Errorf("missing header:\n%s", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			if strings.Contains(out, "📅") {
				t.Errorf("no cards expected:\n%s", out)
			}
		})
	}
}

func TestRenderText_Cards(t *testing.T) {
	cards := []Card{
		{Key: "1", DisplayEvent: model.DisplayEvent{
			FormattedDate: "March 1, 2025",
			FormattedTime: "6:30 PM",
			Description:   "Spring meetup",
			SignUpURL:     "https://example.com/s",
			GraphicURL:    "https://example.com/i.png",
		}},
		{Key: "2", DisplayEvent: model.DisplayEvent{
			FormattedDate: model.DateNotAvailable,
			FormattedTime: model.TimeNotAvailable,
		}},
	}
	out := render(t, State{Phase: PhaseLoaded}, cards)

	order := []string{"[image] https://example.com/i.png", "📅 March 1, 2025", "🕒 6:30 PM", "Spring meetup", "[Sign Up] https://example.com/s", NoSignUpText}
	pos := 0
	for _, want := range order {
		i := strings.Index(out[pos:], want)
		if i < 0 {
			t.Fatalf("missing or out of order %q:\n%s", want, out)
		}
		pos += i
	}
	if strings.Count(out, NoSignUpText) != 1 {
		t.Errorf("placeholder count = %d, want 1", strings.Count(out, NoSignUpText))
	}
}

func TestRenderText_PlaceholderForEveryCardWithoutLink(t *testing.T) {
	cards := make([]Card, 3)
	for i := range cards {
		cards[i] = Card{Key: string(rune('a' + i)), DisplayEvent: model.DisplayEvent{
			FormattedDate: model.DateNotAvailable,
			FormattedTime: model.TimeNotAvailable,
		}}
	}
	out := render(t, State{Phase: PhaseLoaded}, cards)

	if n := strings.Count(out, NoSignUpText); n != 3 {
		t.Errorf("placeholder count = %d, want 3", n)
	}
	if strings.Contains(out, "["+SignUpLabel+"]") {
		t.Error("no sign-up action expected")
	}
}

func TestClampLines(t *testing.T) {
	text := strings.Repeat("word ", 40)
	lines := ClampLines(text, 20, 3)

	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	if !strings.HasSuffix(lines[2], "…") {
		t.Errorf("last line %q should end with ellipsis", lines[2])
	}
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > 20 {
			t.Errorf("line %q width %d > 20", l, w)
		}
	}
}

func TestClampLines_ShortTextUntouched(t *testing.T) {
	lines := ClampLines("short text", 20, 3)
	if len(lines) != 1 || lines[0] != "short text" {
		t.Errorf("lines = %q", lines)
	}
}

func TestClampLines_WideRunesAndLongWords(t *testing.T) {
	// Ten double-width runes at width 6 break into four lines of three.
	lines := ClampLines("アイウエオカキクケコ", 6, 3)
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want 3", lines)
	}
	if lines[0] != "アイウ" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "…") || runewidth.StringWidth(lines[2]) > 6 {
		t.Errorf("lines[2] = %q, want truncated with ellipsis", lines[2])
	}
}
