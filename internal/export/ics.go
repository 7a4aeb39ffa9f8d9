// Package export renders the task schedule in interchange formats so
// organizers can pull it into their own calendars.
package export

import (
	"context"
	"fmt"

	ics "github.com/arran4/golang-ical"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
	"volbot/internal/storage"
)

// ICS renders all non-cancelled tasks as an iCalendar document. Spans are
// resolved to absolute time through the clock, so the export reflects the
// configured event start date.
func ICS(ctx context.Context, clock *eventclock.Clock, store storage.Store) (string, error) {
	tasks, err := store.ListTasks(ctx)
	if err != nil {
		return "", fmt.Errorf("export: list tasks: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//volbot//task schedule//EN")

	for _, t := range tasks {
		if t.Status == domain.TaskCancelled {
			continue
		}
		start, err := t.Span.AbsoluteStart(clock)
		if err != nil {
			return "", fmt.Errorf("export: task %d: %w", t.ID, err)
		}
		end, err := t.Span.AbsoluteEnd(clock)
		if err != nil {
			return "", fmt.Errorf("export: task %d: %w", t.ID, err)
		}

		ev := cal.AddEvent(fmt.Sprintf("task-%d@volbot", t.ID))
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(t.Title)
		if t.Description != "" {
			ev.SetDescription(t.Description)
		}
		if !t.CreatedAt.IsZero() {
			ev.SetDtStampTime(t.CreatedAt)
		}
	}
	return cal.Serialize(), nil
}
