package export

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

func TestICSRendersTasks(t *testing.T) {
	clock, err := eventclock.New(eventclock.Config{
		StartDate: time.Date(2026, 7, 10, 0, 0, 0, 0, time.Local),
		DaysCount: 3,
	})
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	store, err := storage.Open(storage.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "volbot.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	active := domain.Task{
		Title:       "Stage setup",
		Description: "Bring the toolbox",
		Span: domain.TimeSpan{
			Start: eventclock.EventTime{Day: 1, Time: "10:00"},
			End:   eventclock.EventTime{Day: 1, Time: "12:00"},
		},
	}
	if err := store.CreateTask(ctx, &active); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	dropped := domain.Task{
		Title: "Cancelled thing",
		Span: domain.TimeSpan{
			Start: eventclock.EventTime{Day: 2, Time: "10:00"},
			End:   eventclock.EventTime{Day: 2, Time: "11:00"},
		},
	}
	if err := store.CreateTask(ctx, &dropped); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := store.UpdateTaskStatus(ctx, dropped.ID, domain.TaskCancelled); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}

	doc, err := ICS(ctx, clock, store)
	if err != nil {
		t.Fatalf("ICS: %v", err)
	}

	if !strings.Contains(doc, "BEGIN:VCALENDAR") || !strings.Contains(doc, "END:VCALENDAR") {
		t.Fatalf("not a calendar:\n%s", doc)
	}
	if !strings.Contains(doc, "SUMMARY:Stage setup") {
		t.Fatalf("active task missing:\n%s", doc)
	}
	if strings.Contains(doc, "Cancelled thing") {
		t.Fatalf("cancelled task exported:\n%s", doc)
	}
	// Day 1 10:00 resolves against the configured start date.
	if !strings.Contains(doc, "DTSTART") {
		t.Fatalf("no DTSTART:\n%s", doc)
	}
}
