package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get* methods when no row matches.
var ErrNotFound = errors.New("storage: not found")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default; Path is the file location)
//   - "postgres": PostgreSQL via DSN
type Config struct {
	Driver      string
	Path        string        // sqlite file path
	DSN         string        // postgres connection string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// JobKey identifies a reminder job deterministically per (task, assignment).
// Re-scheduling the same assignment therefore replaces its job instead of
// duplicating it.
type JobKey struct {
	TaskID       int64
	AssignmentID int64
}

// String is for logs and operator tooling only; the typed key is what the
// store is keyed on.
func (k JobKey) String() string {
	return fmt.Sprintf("task:%d/assignment:%d", k.TaskID, k.AssignmentID)
}

// JobPayload is everything the dispatcher receives at fire time. It must
// stay serializable and stable across restarts: no live object references.
type JobPayload struct {
	TaskID       int64 `json:"task_id"`
	AssignmentID int64 `json:"assignment_id"`
}

// JobRecord is a durable one-shot reminder job.
type JobRecord struct {
	Key       JobKey
	FireAt    time.Time
	Payload   JobPayload
	CreatedAt time.Time
}

// AuditEntry records an operator action (scheduling, cancellation, debug
// clock changes). Keep it compact and schema-stable.
type AuditEntry struct {
	At      time.Time
	ActorID int64
	Action  string
	Target  string
	Detail  string
}
