package reminder

import (
	"strings"
	"testing"
	"time"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
)

func TestReminderText(t *testing.T) {
	task := domain.Task{Title: "Stage setup", Description: "Bring the toolbox"}
	a := domain.Assignment{
		Span: domain.TimeSpan{
			Start: eventclock.EventTime{Day: 2, Time: "09:00"},
			End:   eventclock.EventTime{Day: 2, Time: "11:30"},
		},
	}
	text := reminderText(task, a, 5*time.Minute)

	for _, want := range []string{"Stage setup", "Bring the toolbox", "5 minutes", "Day 2 09:00", "Day 2 11:30"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}

func TestReminderTextOmitsEmptyDescription(t *testing.T) {
	task := domain.Task{Title: "Stage setup"}
	a := domain.Assignment{
		Span: domain.TimeSpan{
			Start: eventclock.EventTime{Day: 1, Time: "09:00"},
			End:   eventclock.EventTime{Day: 1, Time: "10:00"},
		},
	}
	if strings.Contains(reminderText(task, a, time.Minute), "📝") {
		t.Fatalf("description line rendered for empty description")
	}
}

func TestHumanDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 h"},
		{90 * time.Minute, "1 h 30 min"},
	}
	for _, c := range cases {
		if got := humanDuration(c.in); got != c.want {
			t.Fatalf("humanDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
