package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

// ErrNotAssigned is returned when scheduling is requested for an assignment
// that is no longer in the assigned state.
var ErrNotAssigned = errors.New("reminder: assignment is not in assigned state")

// Scheduler maintains the invariant that at any instant the set of durable
// jobs is exactly the set of assigned, notification-scheduled assignments
// whose fire time has not passed. All mutations of a scheduled fire time go
// through here; there is no other path.
type Scheduler struct {
	log   logx.Logger
	clock *eventclock.Clock
	store Store
	rt    *Runtime

	mu   sync.Mutex
	lead time.Duration
}

func NewScheduler(cfg Config, clock *eventclock.Clock, store Store, rt *Runtime, log logx.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{log: log, clock: clock, store: store, rt: rt, lead: cfg.LeadTime}
}

// LeadTime returns the currently configured reminder lead time.
func (s *Scheduler) LeadTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead
}

// Apply updates the lead time (config hot reload). Already-scheduled jobs
// keep their fire times until rescheduled.
func (s *Scheduler) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.lead = cfg.LeadTime
	s.mu.Unlock()
}

// Key returns the deterministic job key for an assignment. Exposed so
// operator tooling can inspect or cancel a specific pending job.
func Key(taskID, assignmentID int64) storage.JobKey {
	return storage.JobKey{TaskID: taskID, AssignmentID: assignmentID}
}

// Schedule registers the reminder job for an assignment: one durable row
// under the deterministic key, then the in-process timer, then the
// notification_scheduled flag. A fire time already in the past clamps to
// now, so a reminder for an imminent task still fires instead of being
// rejected.
func (s *Scheduler) Schedule(ctx context.Context, a *domain.Assignment) error {
	if !a.Active() {
		return ErrNotAssigned
	}
	fireAt, err := s.fireTime(a)
	if err != nil {
		return err
	}

	key := Key(a.TaskID, a.ID)
	job := storage.JobRecord{
		Key:     key,
		FireAt:  fireAt,
		Payload: storage.JobPayload{TaskID: a.TaskID, AssignmentID: a.ID},
	}
	// Durable first: a crash after this line is repaired by the runtime
	// restore on next start, not lost.
	if err := s.store.UpsertJob(ctx, job); err != nil {
		return fmt.Errorf("reminder: upsert job %s: %w", key, err)
	}
	s.rt.Arm(key, fireAt)

	if !a.NotificationScheduled {
		if err := s.store.MarkNotificationScheduled(ctx, a.ID, true); err != nil {
			// The job exists and is armed; the flag is repairable, the
			// reminder is not at risk. Surface the error anyway.
			return fmt.Errorf("reminder: mark scheduled %d: %w", a.ID, err)
		}
		a.NotificationScheduled = true
	}

	s.log.Debug("reminder scheduled", logx.String("job", key.String()), logx.Time("fire_at", fireAt))
	return nil
}

// Reschedule moves an assignment's fire time after its span was edited. It
// is a single upsert under the same key: last writer wins, so no window
// exists where both the old and the new fire time are pending.
func (s *Scheduler) Reschedule(ctx context.Context, a *domain.Assignment) error {
	return s.Schedule(ctx, a)
}

// Cancel removes the pending job, if any. Cancelling an assignment with no
// job is a documented no-op: the job may have fired and self-deleted, or
// scheduling may have failed upstream.
func (s *Scheduler) Cancel(ctx context.Context, a *domain.Assignment) error {
	return s.CancelKey(ctx, Key(a.TaskID, a.ID), a)
}

// CancelKey is Cancel for operator tooling that only has the ids.
func (s *Scheduler) CancelKey(ctx context.Context, key storage.JobKey, a *domain.Assignment) error {
	s.rt.Disarm(key)
	if err := s.store.DeleteJob(ctx, key); err != nil {
		return fmt.Errorf("reminder: delete job %s: %w", key, err)
	}
	if a != nil && a.NotificationScheduled {
		if err := s.store.MarkNotificationScheduled(ctx, a.ID, false); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		a.NotificationScheduled = false
	}
	s.log.Debug("reminder cancelled", logx.String("job", key.String()))
	return nil
}

func (s *Scheduler) fireTime(a *domain.Assignment) (time.Time, error) {
	start, err := a.Span.AbsoluteStart(s.clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder: assignment %d: %w", a.ID, err)
	}
	fireAt := start.Add(-s.LeadTime())
	if now := s.clock.Now(); !fireAt.After(now) {
		fireAt = now
	}
	return fireAt, nil
}
