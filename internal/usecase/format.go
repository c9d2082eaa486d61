package usecase

import (
	"fmt"
	"strings"

	"calendar-bridge/internal/domain"
)

const (
	noCalendarsReply = "No calendars found in your account."

	// descriptionLimit caps how much of a calendar description makes it into
	// the chat reply.
	descriptionLimit = 47
)

// formatCalendarList renders the calendar list as a numbered, human-readable
// message. Chunking to the transport's message-size limit happens at send
// time, not here.
func formatCalendarList(entries []domain.CalendarEntry) string {
	if len(entries) == 0 {
		return noCalendarsReply
	}

	var b strings.Builder
	b.WriteString("Your calendars:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Summary)
		if e.Description != "" {
			fmt.Fprintf(&b, "   %s\n", truncate(e.Description, descriptionLimit))
		}
		if e.TimeZone != "" {
			fmt.Fprintf(&b, "   Time zone: %s\n", e.TimeZone)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
