package ics

import (
	"strings"
	"time"
	"unicode/utf8"

	ical "github.com/arran4/golang-ical"

	"eventfeed/internal/feed"
	appLog "eventfeed/internal/log"
)

const (
	productID       = "-//eventfeed//eventfeed//EN"
	calendarName    = "Upcoming Events"
	defaultDuration = time.Hour
	maxSummaryRunes = 80
	uidDomain       = "@eventfeed"
)

// Export renders the cards with a parseable start as a PUBLISH calendar.
// Start values without a zone are read in loc. now stamps DTSTAMP.
func Export(cards []feed.Card, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(calendarName)

	skipped := 0
	for _, c := range cards {
		if !c.HasStart() {
			skipped++
			continue
		}
		start, err := feed.ParseStart(c.StartDateTime, loc)
		if err != nil {
			skipped++
			continue
		}

		ev := cal.AddEvent(c.Key + uidDomain)
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(start.UTC())
		ev.SetEndAt(start.Add(defaultDuration).UTC())
		ev.SetSummary(summaryOf(c.Description))
		if c.Description != "" {
			ev.SetDescription(c.Description)
		}
		if c.HasSignUp() {
			ev.SetURL(c.SignUpURL)
		}
	}

	appLog.Debug("ics export", "events", len(cards)-skipped, "skipped", skipped)
	return cal.Serialize()
}

// summaryOf derives a one-line title from a description.
func summaryOf(desc string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(desc), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "Event"
	}
	if utf8.RuneCountInString(line) > maxSummaryRunes {
		r := []rune(line)
		line = string(r[:maxSummaryRunes-1]) + "…"
	}
	return line
}
