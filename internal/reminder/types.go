package reminder

import (
	"context"
	"time"

	"volbot/internal/domain"
	"volbot/internal/storage"
)

// Config tunes the reminder pipeline. All fields have working defaults.
type Config struct {
	LeadTime       time.Duration // how long before task start the reminder fires (default 5m)
	Workers        int           // concurrent dispatch pool (default 2)
	QueueSize      int           // pending-firing buffer (default 64)
	ReconcileEvery time.Duration // periodic repair sweep (default 5m, 0 disables)
	Verbose        bool          // fan delivery outcomes out to admins
	AdminIDs       []int64
}

func (c Config) withDefaults() Config {
	if c.LeadTime <= 0 {
		c.LeadTime = 5 * time.Minute
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// JobStore is the durable half of the runtime: one row per pending reminder,
// keyed by (task, assignment), last writer wins.
type JobStore interface {
	UpsertJob(ctx context.Context, j storage.JobRecord) error
	DeleteJob(ctx context.Context, key storage.JobKey) error
	GetJob(ctx context.Context, key storage.JobKey) (storage.JobRecord, bool, error)
	ListJobs(ctx context.Context) ([]storage.JobRecord, error)
}

// RecordStore is what the dispatcher and reconcile sweep read and update.
// Every firing re-reads current state through it; jobs never carry live
// object references across the fire boundary.
type RecordStore interface {
	GetAssignment(ctx context.Context, id int64) (domain.Assignment, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	GetVolunteer(ctx context.Context, id int64) (domain.Volunteer, error)
	MarkNotificationScheduled(ctx context.Context, id int64, scheduled bool) error
	ListUnscheduledAssignments(ctx context.Context) ([]domain.Assignment, error)
}

// Store is the combined persistence surface the reminder service needs;
// storage.Store satisfies it.
type Store interface {
	JobStore
	RecordStore
}
