package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
	"volbot/pkg/logx"
)

func debugClock(t *testing.T, now time.Time) *eventclock.Clock {
	t.Helper()
	c, err := eventclock.New(eventclock.Config{
		StartDate: time.Date(2026, 7, 10, 0, 0, 0, 0, time.Local),
		DaysCount: 3,
		DebugMode: true,
	})
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	if err := c.SetDebugTime(now); err != nil {
		t.Fatalf("SetDebugTime: %v", err)
	}
	return c
}

func testAssignment(id, taskID int64) domain.Assignment {
	return domain.Assignment{
		ID:          id,
		TaskID:      taskID,
		VolunteerID: 100,
		Status:      domain.AssignmentAssigned,
		Span: domain.TimeSpan{
			Start: eventclock.EventTime{Day: 1, Time: "10:00"},
			End:   eventclock.EventTime{Day: 1, Time: "12:00"},
		},
	}
}

func newTestScheduler(t *testing.T, now time.Time, lead time.Duration) (*Scheduler, *Runtime, *fakeStore, *eventclock.Clock) {
	t.Helper()
	clock := debugClock(t, now)
	store := newFakeStore()
	cfg := Config{LeadTime: lead}
	rt := NewRuntime(cfg, clock, store, logx.Nop())
	sched := NewScheduler(cfg, clock, store, rt, logx.Nop())
	return sched, rt, store, clock
}

func TestScheduleCreatesJob(t *testing.T) {
	now := time.Date(2026, 7, 10, 8, 0, 0, 0, time.Local)
	sched, rt, store, _ := newTestScheduler(t, now, 5*time.Minute)

	a := testAssignment(1, 10)
	store.putAssignment(a)
	if err := sched.Schedule(context.Background(), &a); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	key := Key(10, 1)
	j, ok := store.job(key)
	if !ok {
		t.Fatalf("no durable job after Schedule")
	}
	want := time.Date(2026, 7, 10, 9, 55, 0, 0, time.Local)
	if !j.FireAt.Equal(want) {
		t.Fatalf("fire at %v, want %v", j.FireAt, want)
	}
	if j.Payload.TaskID != 10 || j.Payload.AssignmentID != 1 {
		t.Fatalf("payload %+v", j.Payload)
	}
	if !rt.Armed(key) {
		t.Fatalf("runtime timer not armed")
	}
	if !a.NotificationScheduled {
		t.Fatalf("notification flag not set on the record")
	}
	if !store.assignment(1).NotificationScheduled {
		t.Fatalf("notification flag not persisted")
	}
}

// A lead time that lands before "now" clamps the fire time to now instead of
// rejecting the reminder.
func TestSchedulePastFireTimeClampsToNow(t *testing.T) {
	now := time.Date(2026, 7, 10, 9, 58, 0, 0, time.Local)
	sched, _, store, _ := newTestScheduler(t, now, 5*time.Minute)

	a := testAssignment(1, 10)
	store.putAssignment(a)
	if err := sched.Schedule(context.Background(), &a); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	j, ok := store.job(Key(10, 1))
	if !ok {
		t.Fatalf("no job")
	}
	if !j.FireAt.Equal(now) {
		t.Fatalf("fire at %v, want clamped to %v", j.FireAt, now)
	}
}

func TestScheduleRejectsInactive(t *testing.T) {
	sched, _, store, _ := newTestScheduler(t, time.Date(2026, 7, 10, 8, 0, 0, 0, time.Local), 5*time.Minute)

	a := testAssignment(1, 10)
	a.Status = domain.AssignmentCancelled
	store.putAssignment(a)
	if err := sched.Schedule(context.Background(), &a); !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("got %v, want ErrNotAssigned", err)
	}
	if store.jobCount() != 0 {
		t.Fatalf("job created for cancelled assignment")
	}
}

// Editing the span must replace the job under the same key, never produce a
// second one.
func TestRescheduleReplacesJob(t *testing.T) {
	now := time.Date(2026, 7, 10, 8, 0, 0, 0, time.Local)
	sched, _, store, _ := newTestScheduler(t, now, 5*time.Minute)

	a := testAssignment(1, 10)
	store.putAssignment(a)
	if err := sched.Schedule(context.Background(), &a); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	a.Span = domain.TimeSpan{
		Start: eventclock.EventTime{Day: 2, Time: "15:00"},
		End:   eventclock.EventTime{Day: 2, Time: "17:00"},
	}
	if err := sched.Reschedule(context.Background(), &a); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	if n := store.jobCount(); n != 1 {
		t.Fatalf("job count = %d, want 1", n)
	}
	j, _ := store.job(Key(10, 1))
	want := time.Date(2026, 7, 11, 14, 55, 0, 0, time.Local)
	if !j.FireAt.Equal(want) {
		t.Fatalf("fire at %v, want %v", j.FireAt, want)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	now := time.Date(2026, 7, 10, 8, 0, 0, 0, time.Local)
	sched, rt, store, _ := newTestScheduler(t, now, 5*time.Minute)

	a := testAssignment(1, 10)
	store.putAssignment(a)
	if err := sched.Schedule(context.Background(), &a); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if err := sched.Cancel(context.Background(), &a); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if store.jobCount() != 0 {
		t.Fatalf("job still present after Cancel")
	}
	if rt.Armed(Key(10, 1)) {
		t.Fatalf("timer still armed after Cancel")
	}
	if a.NotificationScheduled {
		t.Fatalf("flag still set after Cancel")
	}

	// Second cancel: nothing to remove, no error.
	if err := sched.Cancel(context.Background(), &a); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
}

func TestApplyChangesLeadTime(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t, time.Date(2026, 7, 10, 8, 0, 0, 0, time.Local), 5*time.Minute)
	sched.Apply(Config{LeadTime: 30 * time.Minute})
	if got := sched.LeadTime(); got != 30*time.Minute {
		t.Fatalf("LeadTime = %v", got)
	}
}
