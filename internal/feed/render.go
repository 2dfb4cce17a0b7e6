package feed

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	defaultTextWidth = 60
	ellipsis         = "…"
)

// RenderText writes the screen as plain text for a terminal of the given
// width. cards is ignored unless st is loaded.
func RenderText(w io.Writer, st State, cards []Card, width int) error {
	if width <= 0 {
		width = defaultTextWidth
	}

	var b strings.Builder
	b.WriteString(HeaderTitle)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("=", runewidth.StringWidth(HeaderTitle)))
	b.WriteString("\n\n")

	switch {
	case st.Phase == PhaseLoading:
		b.WriteString(LoadingMessage + "\n")
	case st.Phase == PhaseError:
		b.WriteString(st.Message + "\n")
	case len(cards) == 0:
		b.WriteString(EmptyMessage + "\n")
	default:
		for i, c := range cards {
			if i > 0 {
				b.WriteString(strings.Repeat("-", width) + "\n")
			}
			writeCard(&b, c, width)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCard(b *strings.Builder, c Card, width int) {
	if c.GraphicURL != "" {
		b.WriteString("[image] " + c.GraphicURL + "\n")
	}
	b.WriteString("📅 " + c.FormattedDate + "\n")
	b.WriteString("🕒 " + c.FormattedTime + "\n")
	if c.Description != "" {
		for _, line := range ClampLines(c.Description, width, MaxDescriptionRows) {
			b.WriteString(line + "\n")
		}
	}
	if c.HasSignUp() {
		b.WriteString("[" + SignUpLabel + "] " + c.SignUpURL + "  (key: " + c.Key + ")\n")
	} else {
		b.WriteString(NoSignUpText + "\n")
	}
}

// ClampLines word-wraps text to width display columns and keeps at most
// maxLines lines, ending the last kept line with an ellipsis when text
// was cut.
func ClampLines(text string, width, maxLines int) []string {
	lines := wrap(text, width)
	if maxLines <= 0 || len(lines) <= maxLines {
		return lines
	}

	lines = lines[:maxLines]
	last := lines[maxLines-1] + ellipsis
	lines[maxLines-1] = runewidth.Truncate(last, width, ellipsis)
	return lines
}

func wrap(text string, width int) []string {
	var lines []string
	var cur string

	flush := func() {
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
	}

	for _, word := range strings.Fields(text) {
		// Words wider than the line are hard-broken.
		if runewidth.StringWidth(word) > width {
			flush()
			parts := breakWord(word, width)
			lines = append(lines, parts[:len(parts)-1]...)
			cur = parts[len(parts)-1]
			continue
		}

		switch {
		case cur == "":
			cur = word
		case runewidth.StringWidth(cur)+1+runewidth.StringWidth(word) <= width:
			cur += " " + word
		default:
			flush()
			cur = word
		}
	}
	flush()

	return lines
}

func breakWord(word string, width int) []string {
	var parts []string
	var cur strings.Builder
	curWidth := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if curWidth+rw > width && curWidth > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curWidth = 0
		}
		cur.WriteRune(r)
		curWidth += rw
	}
	return append(parts, cur.String())
}
