// Package roster is the write path for tasks, volunteers and assignments.
// Every mutation that affects when a reminder should fire goes through here,
// so the durable job set stays in step with the records it points at.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
	"volbot/internal/reminder"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

// ErrTaskNotActive rejects mutations of completed or cancelled tasks.
var ErrTaskNotActive = errors.New("roster: task is not active")

type Service struct {
	log   logx.Logger
	clock *eventclock.Clock
	store storage.Store
	sched *reminder.Scheduler
}

func New(clock *eventclock.Clock, store storage.Store, sched *reminder.Scheduler, log logx.Logger) *Service {
	return &Service{log: log, clock: clock, store: store, sched: sched}
}

// RegisterVolunteer creates or refreshes a volunteer record. Registration is
// idempotent; repeat /start calls just update the profile fields.
func (s *Service) RegisterVolunteer(ctx context.Context, v domain.Volunteer) error {
	if v.Role == "" {
		v.Role = domain.RoleVolunteer
	}
	if err := s.store.UpsertVolunteer(ctx, v); err != nil {
		return fmt.Errorf("roster: register volunteer %d: %w", v.ID, err)
	}
	return nil
}

// CreateTask validates the span against the event window and persists the
// task as active.
func (s *Service) CreateTask(ctx context.Context, actorID int64, title, description string, start, end eventclock.EventTime) (domain.Task, error) {
	span, err := domain.NewTimeSpan(s.clock, start, end)
	if err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{
		Title:       title,
		Description: description,
		Span:        span,
		Status:      domain.TaskActive,
	}
	if err := s.store.CreateTask(ctx, &t); err != nil {
		return domain.Task{}, fmt.Errorf("roster: create task: %w", err)
	}
	s.audit(ctx, actorID, "task.create", fmt.Sprintf("task:%d", t.ID), span.String())
	s.log.Info("task created", logx.Int64("task_id", t.ID), logx.String("span", span.String()))
	return t, nil
}

// Assign pairs a volunteer with a task. The assignment copies the task's
// current span. An existing active assignment of the same volunteer to the
// same task is superseded: it is cancelled, its reminder removed, and the
// fresh assignment takes over.
func (s *Service) Assign(ctx context.Context, taskID, volunteerID, assignedBy int64) (domain.Assignment, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if task.Status != domain.TaskActive {
		return domain.Assignment{}, ErrTaskNotActive
	}
	if _, err := s.store.GetVolunteer(ctx, volunteerID); err != nil {
		return domain.Assignment{}, err
	}

	existing, err := s.store.ListAssignmentsByTask(ctx, taskID)
	if err != nil {
		return domain.Assignment{}, err
	}
	for i := range existing {
		prev := existing[i]
		if prev.VolunteerID != volunteerID || !prev.Active() {
			continue
		}
		if err := s.cancelAssignment(ctx, &prev); err != nil {
			return domain.Assignment{}, fmt.Errorf("roster: supersede assignment %d: %w", prev.ID, err)
		}
		s.log.Info("assignment superseded", logx.Int64("assignment_id", prev.ID))
	}

	a := domain.Assignment{
		TaskID:      taskID,
		VolunteerID: volunteerID,
		AssignedBy:  assignedBy,
		AssignedAt:  s.clock.Now(),
		Span:        task.Span,
		Status:      domain.AssignmentAssigned,
	}
	if err := s.store.CreateAssignment(ctx, &a); err != nil {
		return domain.Assignment{}, fmt.Errorf("roster: create assignment: %w", err)
	}

	if s.clock.IsFuture(a.Span.Start) {
		if err := s.sched.Schedule(ctx, &a); err != nil {
			// The assignment stands; the reconcile sweep will pick the
			// reminder up via the unset notification flag.
			s.log.Warn("reminder scheduling failed; left for reconcile",
				logx.Int64("assignment_id", a.ID), logx.Err(err))
		}
	}

	s.audit(ctx, assignedBy, "assignment.create",
		fmt.Sprintf("task:%d/assignment:%d", taskID, a.ID),
		fmt.Sprintf("volunteer:%d", volunteerID))
	return a, nil
}

// CancelAssignment cancels one assignment and removes its pending reminder.
func (s *Service) CancelAssignment(ctx context.Context, actorID, assignmentID int64) error {
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !a.Active() {
		return nil
	}
	if err := s.cancelAssignment(ctx, &a); err != nil {
		return err
	}
	s.audit(ctx, actorID, "assignment.cancel", fmt.Sprintf("task:%d/assignment:%d", a.TaskID, a.ID), "")
	return nil
}

func (s *Service) cancelAssignment(ctx context.Context, a *domain.Assignment) error {
	if err := s.store.UpdateAssignmentStatus(ctx, a.ID, domain.AssignmentCancelled); err != nil {
		return err
	}
	a.Status = domain.AssignmentCancelled
	return s.sched.Cancel(ctx, a)
}

// EditTaskSpan moves a task to a new time window and drags every active
// assignment along: their spans are updated and their reminders rescheduled
// under the same job keys.
func (s *Service) EditTaskSpan(ctx context.Context, actorID, taskID int64, start, end eventclock.EventTime) error {
	span, err := domain.NewTimeSpan(s.clock, start, end)
	if err != nil {
		return err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != domain.TaskActive {
		return ErrTaskNotActive
	}
	if err := s.store.UpdateTaskSpan(ctx, taskID, span); err != nil {
		return fmt.Errorf("roster: update task span: %w", err)
	}

	assignments, err := s.store.ListAssignmentsByTask(ctx, taskID)
	if err != nil {
		return err
	}
	for i := range assignments {
		a := assignments[i]
		if !a.Active() {
			continue
		}
		if err := s.store.UpdateAssignmentSpan(ctx, a.ID, span); err != nil {
			return fmt.Errorf("roster: update assignment %d span: %w", a.ID, err)
		}
		a.Span = span
		if !s.clock.IsFuture(span.Start) {
			// New start already passed; drop any pending reminder rather
			// than firing instantly for a task that is underway.
			if err := s.sched.Cancel(ctx, &a); err != nil {
				return err
			}
			continue
		}
		if err := s.sched.Reschedule(ctx, &a); err != nil {
			return fmt.Errorf("roster: reschedule assignment %d: %w", a.ID, err)
		}
	}

	s.audit(ctx, actorID, "task.edit_span", fmt.Sprintf("task:%d", taskID), span.String())
	s.log.Info("task span edited", logx.Int64("task_id", taskID), logx.String("span", span.String()))
	return nil
}

// CompleteTask marks a task done. Pending reminders are left alone: a task
// completed early still had its assignments honoured.
func (s *Service) CompleteTask(ctx context.Context, actorID, taskID int64) error {
	if err := s.store.UpdateTaskStatus(ctx, taskID, domain.TaskCompleted); err != nil {
		return err
	}
	s.audit(ctx, actorID, "task.complete", fmt.Sprintf("task:%d", taskID), "")
	return nil
}

// CancelTask cancels a task together with all of its active assignments and
// their pending reminders.
func (s *Service) CancelTask(ctx context.Context, actorID, taskID int64) error {
	if err := s.store.UpdateTaskStatus(ctx, taskID, domain.TaskCancelled); err != nil {
		return err
	}
	assignments, err := s.store.ListAssignmentsByTask(ctx, taskID)
	if err != nil {
		return err
	}
	for i := range assignments {
		a := assignments[i]
		if !a.Active() {
			continue
		}
		if err := s.cancelAssignment(ctx, &a); err != nil {
			return err
		}
	}
	s.audit(ctx, actorID, "task.cancel", fmt.Sprintf("task:%d", taskID), "")
	s.log.Info("task cancelled", logx.Int64("task_id", taskID))
	return nil
}

// TasksForVolunteer returns the volunteer's active assignments joined with
// their tasks, ordered as stored.
func (s *Service) TasksForVolunteer(ctx context.Context, volunteerID int64) ([]AssignedTask, error) {
	assignments, err := s.store.ListAssignmentsByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, err
	}
	out := make([]AssignedTask, 0, len(assignments))
	for i := range assignments {
		a := assignments[i]
		if !a.Active() {
			continue
		}
		task, err := s.store.GetTask(ctx, a.TaskID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, AssignedTask{Task: task, Assignment: a})
	}
	return out, nil
}

// TasksOnDay returns active tasks whose span touches the given event day.
func (s *Service) TasksOnDay(ctx context.Context, day int) ([]domain.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := tasks[:0:0]
	for _, t := range tasks {
		if t.Status != domain.TaskActive {
			continue
		}
		if t.Span.Start.Day <= day && day <= t.Span.End.Day {
			out = append(out, t)
		}
	}
	return out, nil
}

// AssignedTask is an assignment joined with its task for display.
type AssignedTask struct {
	Task       domain.Task
	Assignment domain.Assignment
}

func (s *Service) audit(ctx context.Context, actorID int64, action, target, detail string) {
	e := storage.AuditEntry{
		At:      time.Now().UTC(),
		ActorID: actorID,
		Action:  action,
		Target:  target,
		Detail:  detail,
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Warn("audit append failed", logx.String("action", action), logx.Err(err))
	}
}
