// Package domain holds the records the bot coordinates: tasks, volunteers,
// and the assignments that pair them, together with the event-relative time
// span value they share.
package domain

import "time"

type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is a unit of event work. The span is event-relative; assignments take
// their own copy of it at creation time.
type Task struct {
	ID          int64
	Title       string
	Description string
	Span        TimeSpan
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
