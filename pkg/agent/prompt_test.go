package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextWeekday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		wd   time.Weekday
		want string
	}{
		{name: "later this week", from: sunday, wd: time.Thursday, want: "2026-10-22"},
		{name: "same day", from: sunday, wd: time.Sunday, want: "2026-10-18"},
		{name: "tomorrow", from: sunday, wd: time.Monday, want: "2026-10-19"},
		{name: "wraps to next week", from: sunday.AddDate(0, 0, 5), wd: time.Thursday, want: "2026-10-29"},
		{name: "crosses month", from: time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC), wd: time.Tuesday, want: "2026-11-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextWeekday(tt.from, tt.wd).Format("2006-01-02"))
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	assert.Contains(t, prompt, "Today is 2026-10-18 (Sunday).")
	assert.Contains(t, prompt, "Tomorrow is 2026-10-19.")
	assert.Contains(t, prompt, "- Thursday: 2026-10-22")
	assert.Contains(t, prompt, "- Saturday: 2026-10-24")
	assert.Contains(t, prompt, "use create_task")
	assert.Contains(t, prompt, "default to append_note")
}
