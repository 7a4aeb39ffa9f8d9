package reminder

import (
	"fmt"
	"strings"
	"time"

	"volbot/internal/domain"
)

// reminderText composes the volunteer-facing reminder. The time window is
// rendered in event-relative terms, the form volunteers plan their days in.
func reminderText(task domain.Task, a domain.Assignment, lead time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Task reminder!\n\n")
	fmt.Fprintf(&b, "Starting in %s:\n", humanDuration(lead))
	fmt.Fprintf(&b, "📋 %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n", task.Description)
	}
	fmt.Fprintf(&b, "🕒 Start: Day %d %s\n", a.Span.Start.Day, a.Span.Start.Time)
	fmt.Fprintf(&b, "🕕 End: Day %d %s", a.Span.End.Day, a.Span.End.Time)
	return b.String()
}

func adminOutcomeText(task domain.Task, vol domain.Volunteer, sendErr error) string {
	who := vol.Name
	if who == "" {
		who = fmt.Sprintf("volunteer %d", vol.ID)
	}
	if sendErr != nil {
		return fmt.Sprintf("⚠️ Reminder for %q to %s failed: %v", task.Title, who, sendErr)
	}
	return fmt.Sprintf("✅ Reminder for %q delivered to %s", task.Title, who)
}

// humanDuration renders a lead time for humans: "5 minutes", "1 h 30 min".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%d h %d min", h, m)
	case h > 0:
		return fmt.Sprintf("%d h", h)
	case m == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", m)
	}
}
