package reminder

import (
	"context"
	"testing"
	"time"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	clock := debugClock(t, time.Date(2026, 7, 10, 8, 0, 0, 0, time.Local))
	return NewService(Config{LeadTime: 5 * time.Minute, ReconcileEvery: 0}, clock, store, newFakeGateway(), logx.Nop())
}

// An assigned, unscheduled assignment with a future start gets its job
// registered by the sweep.
func TestReconcileSchedulesMissedAssignments(t *testing.T) {
	store := newFakeStore()
	a := testAssignment(1, 10)
	store.putAssignment(a)

	svc := newTestService(t, store)
	if err := svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if _, ok := store.job(Key(10, 1)); !ok {
		t.Fatalf("sweep did not schedule the missed assignment")
	}
	if !store.assignment(1).NotificationScheduled {
		t.Fatalf("notification flag not set")
	}
}

// An unscheduled assignment whose start already passed stays quiet: no late
// reminder.
func TestReconcileSkipsStartedTasks(t *testing.T) {
	store := newFakeStore()
	a := testAssignment(1, 10)
	a.Span = domain.TimeSpan{
		Start: eventclock.EventTime{Day: 1, Time: "07:00"},
		End:   eventclock.EventTime{Day: 1, Time: "09:00"},
	}
	store.putAssignment(a)

	svc := newTestService(t, store)
	if err := svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if store.jobCount() != 0 {
		t.Fatalf("sweep scheduled a reminder for a started task")
	}
}

// Jobs pointing at cancelled or deleted assignments are pruned.
func TestReconcilePrunesOrphanedJobs(t *testing.T) {
	store := newFakeStore()

	cancelled := testAssignment(1, 10)
	cancelled.Status = domain.AssignmentCancelled
	cancelled.NotificationScheduled = true
	store.putAssignment(cancelled)
	putJob(store, storage.JobKey{TaskID: 10, AssignmentID: 1}, time.Date(2026, 7, 10, 9, 55, 0, 0, time.Local))

	// Assignment 2 does not exist at all.
	putJob(store, storage.JobKey{TaskID: 10, AssignmentID: 2}, time.Date(2026, 7, 10, 9, 55, 0, 0, time.Local))

	live := testAssignment(3, 10)
	live.NotificationScheduled = true
	store.putAssignment(live)
	putJob(store, storage.JobKey{TaskID: 10, AssignmentID: 3}, time.Date(2026, 7, 10, 9, 55, 0, 0, time.Local))

	svc := newTestService(t, store)
	if err := svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if _, ok := store.job(Key(10, 1)); ok {
		t.Fatalf("job for cancelled assignment not pruned")
	}
	if _, ok := store.job(Key(10, 2)); ok {
		t.Fatalf("job for missing assignment not pruned")
	}
	if _, ok := store.job(Key(10, 3)); !ok {
		t.Fatalf("job for live assignment was pruned")
	}
}

// A durable row can outlive its timer (a firing dropped on a full queue, or
// a stale fire that was skipped). The sweep must give such a row its timer
// back instead of leaving the reminder dead until restart.
func TestReconcileRearmsOrphanedJobs(t *testing.T) {
	store := newFakeStore()
	a := testAssignment(1, 10)
	a.NotificationScheduled = true
	store.putAssignment(a)
	key := storage.JobKey{TaskID: 10, AssignmentID: 1}
	putJob(store, key, time.Date(2026, 7, 10, 9, 55, 0, 0, time.Local))

	svc := newTestService(t, store)
	if svc.Runtime().Armed(key) {
		t.Fatalf("timer armed before the sweep ran")
	}
	if err := svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if !svc.Runtime().Armed(key) {
		t.Fatalf("sweep left the durable job without a timer")
	}
	if _, ok := store.job(key); !ok {
		t.Fatalf("sweep consumed the row instead of re-arming it")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.putAssignment(testAssignment(1, 10))

	svc := newTestService(t, store)
	for i := 0; i < 3; i++ {
		if err := svc.Reconcile(context.Background()); err != nil {
			t.Fatalf("Reconcile #%d: %v", i+1, err)
		}
	}
	if n := store.jobCount(); n != 1 {
		t.Fatalf("job count = %d after repeated sweeps, want 1", n)
	}
}
