package domain

import "time"

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// Assignment pairs a task with a volunteer.
//
// It carries its own copy of the time span: initially the task's, but
// independently editable, so a task reschedule can either drag in-flight
// assignments along or explicitly leave them behind.
//
// NotificationScheduled flips to true exactly once a reminder job has been
// durably registered; cancelled is terminal for scheduling purposes, so a
// cancelled assignment must have no pending job.
type Assignment struct {
	ID          int64
	TaskID      int64
	VolunteerID int64
	AssignedBy  int64
	AssignedAt  time.Time
	Span        TimeSpan
	Status      AssignmentStatus

	NotificationScheduled bool
}

// Active reports whether the assignment still participates in scheduling.
func (a *Assignment) Active() bool {
	return a.Status == AssignmentAssigned
}
