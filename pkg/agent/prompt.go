package agent

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// NextWeekday returns the first date on or after from that falls on wd
func NextWeekday(from time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(from.Weekday()) + 7) % 7
	y, m, d := from.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, from.Location())
}

// BuildSystemPrompt returns the behavioral rules with today's date and the
// upcoming weekdays so relative dates resolve without arithmetic by the model.
func BuildSystemPrompt(now time.Time) string {
	var b strings.Builder

	b.WriteString(`You are a personal assistant that helps capture and organize tasks, notes, and information.
You have access to tools for managing Trello cards and Obsidian notes.

When the user sends informal input:
- If it's actionable, use create_task
- If it's informational, use append_note
- If it requires multiple steps, call tools in sequence
- If it's ambiguous, default to append_note

The user is texting quickly from their phone during meetings. Input will be informal.
Clean up the content before creating tasks or notes.

Archiving a card always asks the user for confirmation. Never ask for it yourself.
`)

	fmt.Fprintf(&b, "\nToday is %s (%s).\n", now.Format(dateLayout), now.Weekday())
	b.WriteString("Resolve relative dates to the next upcoming day on or after today:\n")
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(now.Weekday()) + i) % 7)
		fmt.Fprintf(&b, "- %s: %s\n", wd, NextWeekday(now, wd).Format(dateLayout))
	}
	fmt.Fprintf(&b, "Tomorrow is %s.\n", now.AddDate(0, 0, 1).Format(dateLayout))
	b.WriteString("Pass dates to tools as YYYY-MM-DD.\n\nAlways confirm what you did in a brief, friendly reply.")

	return b.String()
}
