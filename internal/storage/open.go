package storage

import (
	"context"
	"errors"
	"strings"

	"volbot/pkg/logx"

	"volbot/internal/domain"
)

// Store is the persistence API used by the services.
type Store interface {
	// Volunteers
	UpsertVolunteer(ctx context.Context, v domain.Volunteer) error
	GetVolunteer(ctx context.Context, id int64) (domain.Volunteer, error)
	ListVolunteers(ctx context.Context) ([]domain.Volunteer, error)

	// Tasks
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	UpdateTaskSpan(ctx context.Context, id int64, span domain.TimeSpan) error
	UpdateTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) error

	// Assignments
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	GetAssignment(ctx context.Context, id int64) (domain.Assignment, error)
	ListAssignmentsByTask(ctx context.Context, taskID int64) ([]domain.Assignment, error)
	ListAssignmentsByVolunteer(ctx context.Context, volunteerID int64) ([]domain.Assignment, error)
	ListUnscheduledAssignments(ctx context.Context) ([]domain.Assignment, error)
	UpdateAssignmentSpan(ctx context.Context, id int64, span domain.TimeSpan) error
	UpdateAssignmentStatus(ctx context.Context, id int64, status domain.AssignmentStatus) error
	MarkNotificationScheduled(ctx context.Context, id int64, scheduled bool) error

	// Reminder jobs
	UpsertJob(ctx context.Context, j JobRecord) error
	DeleteJob(ctx context.Context, key JobKey) error
	GetJob(ctx context.Context, key JobKey) (JobRecord, bool, error)
	ListJobs(ctx context.Context) ([]JobRecord, error)

	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// Open initializes the configured store and runs its baseline migration.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "postgres", "postgresql":
		return openPostgres(cfg, log)
	default:
		return nil, errors.New("storage: unknown driver: " + cfg.Driver)
	}
}
