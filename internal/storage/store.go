package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"volbot/internal/domain"
	"volbot/pkg/logx"
)

// sqlStore implements Store on database/sql; the dialect shim covers the
// sqlite/postgres differences.
type sqlStore struct {
	db  *sql.DB
	d   dialect
	log logx.Logger
}

const timeFormat = time.RFC3339Nano

func (s *sqlStore) migrate(ctx context.Context, file string) error {
	b, err := migrationsFS.ReadFile(file)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- Volunteers ----

func (s *sqlStore) UpsertVolunteer(ctx context.Context, v domain.Volunteer) error {
	q := s.d.Rebind(`INSERT INTO volunteers(volunteer_id, username, name, role) VALUES(?,?,?,?)
		ON CONFLICT(volunteer_id) DO UPDATE SET username=excluded.username, name=excluded.name, role=excluded.role`)
	_, err := s.db.ExecContext(ctx, q, v.ID, v.Username, v.Name, string(v.Role))
	return err
}

func (s *sqlStore) GetVolunteer(ctx context.Context, id int64) (domain.Volunteer, error) {
	q := s.d.Rebind(`SELECT volunteer_id, username, name, role FROM volunteers WHERE volunteer_id = ?`)
	var v domain.Volunteer
	var role string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.Username, &v.Name, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Volunteer{}, ErrNotFound
	}
	if err != nil {
		return domain.Volunteer{}, err
	}
	v.Role = domain.Role(role)
	return v, nil
}

func (s *sqlStore) ListVolunteers(ctx context.Context) ([]domain.Volunteer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT volunteer_id, username, name, role FROM volunteers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Volunteer
	for rows.Next() {
		var v domain.Volunteer
		var role string
		if err := rows.Scan(&v.ID, &v.Username, &v.Name, &role); err != nil {
			return nil, err
		}
		v.Role = domain.Role(role)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---- Tasks ----

func (s *sqlStore) CreateTask(ctx context.Context, t *domain.Task) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = domain.TaskActive
	}
	id, err := s.d.InsertID(ctx,
		s.db,
		`INSERT INTO tasks(title, description, start_day, start_time, end_day, end_time, status, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		"task_id",
		t.Title, t.Description,
		t.Span.Start.Day, t.Span.Start.Time, t.Span.End.Day, t.Span.End.Time,
		string(t.Status), t.CreatedAt.Format(timeFormat), t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	t.ID = id
	return nil
}

const taskCols = `task_id, title, description, start_day, start_time, end_day, end_time, status, created_at, updated_at`

func (s *sqlStore) scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var status, created, updated string
	err := row.Scan(&t.ID, &t.Title, &t.Description,
		&t.Span.Start.Day, &t.Span.Start.Time, &t.Span.End.Day, &t.Span.End.Time,
		&status, &created, &updated)
	if err != nil {
		return domain.Task{}, err
	}
	t.Status = domain.TaskStatus(status)
	t.CreatedAt, _ = time.Parse(timeFormat, created)
	t.UpdatedAt, _ = time.Parse(timeFormat, updated)
	return t, nil
}

func (s *sqlStore) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	q := s.d.Rebind(`SELECT ` + taskCols + ` FROM tasks WHERE task_id = ?`)
	t, err := s.scanTask(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, ErrNotFound
	}
	return t, err
}

func (s *sqlStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks ORDER BY start_day, start_time, task_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := s.scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateTaskSpan(ctx context.Context, id int64, span domain.TimeSpan) error {
	q := s.d.Rebind(`UPDATE tasks SET start_day=?, start_time=?, end_day=?, end_time=?, updated_at=? WHERE task_id = ?`)
	return s.execOne(ctx, q, span.Start.Day, span.Start.Time, span.End.Day, span.End.Time,
		time.Now().Format(timeFormat), id)
}

func (s *sqlStore) UpdateTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) error {
	q := s.d.Rebind(`UPDATE tasks SET status=?, updated_at=? WHERE task_id = ?`)
	return s.execOne(ctx, q, string(status), time.Now().Format(timeFormat), id)
}

// ---- Assignments ----

func (s *sqlStore) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = domain.AssignmentAssigned
	}
	id, err := s.d.InsertID(ctx,
		s.db,
		`INSERT INTO assignments(task_id, volunteer_id, assigned_by, assigned_at, start_day, start_time, end_day, end_time, status, notification_scheduled)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		"assignment_id",
		a.TaskID, a.VolunteerID, a.AssignedBy, a.AssignedAt.Format(timeFormat),
		a.Span.Start.Day, a.Span.Start.Time, a.Span.End.Day, a.Span.End.Time,
		string(a.Status), a.NotificationScheduled,
	)
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	a.ID = id
	return nil
}

const assignmentCols = `assignment_id, task_id, volunteer_id, assigned_by, assigned_at,
	start_day, start_time, end_day, end_time, status, notification_scheduled`

func (s *sqlStore) scanAssignment(row interface{ Scan(...any) error }) (domain.Assignment, error) {
	var a domain.Assignment
	var status, assigned string
	err := row.Scan(&a.ID, &a.TaskID, &a.VolunteerID, &a.AssignedBy, &assigned,
		&a.Span.Start.Day, &a.Span.Start.Time, &a.Span.End.Day, &a.Span.End.Time,
		&status, &a.NotificationScheduled)
	if err != nil {
		return domain.Assignment{}, err
	}
	a.Status = domain.AssignmentStatus(status)
	a.AssignedAt, _ = time.Parse(timeFormat, assigned)
	return a, nil
}

func (s *sqlStore) GetAssignment(ctx context.Context, id int64) (domain.Assignment, error) {
	q := s.d.Rebind(`SELECT ` + assignmentCols + ` FROM assignments WHERE assignment_id = ?`)
	a, err := s.scanAssignment(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, ErrNotFound
	}
	return a, err
}

func (s *sqlStore) listAssignments(ctx context.Context, where string, args ...any) ([]domain.Assignment, error) {
	q := s.d.Rebind(`SELECT ` + assignmentCols + ` FROM assignments ` + where)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := s.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqlStore) ListAssignmentsByTask(ctx context.Context, taskID int64) ([]domain.Assignment, error) {
	return s.listAssignments(ctx, `WHERE task_id = ? ORDER BY assignment_id`, taskID)
}

func (s *sqlStore) ListAssignmentsByVolunteer(ctx context.Context, volunteerID int64) ([]domain.Assignment, error) {
	return s.listAssignments(ctx, `WHERE volunteer_id = ? ORDER BY start_day, start_time`, volunteerID)
}

// ListUnscheduledAssignments returns active assignments whose reminder job
// was never durably registered (e.g. a crash between creation and
// scheduling). The reconcile sweep re-schedules them.
func (s *sqlStore) ListUnscheduledAssignments(ctx context.Context) ([]domain.Assignment, error) {
	return s.listAssignments(ctx,
		`WHERE status = ? AND notification_scheduled = ? ORDER BY assignment_id`,
		string(domain.AssignmentAssigned), false)
}

func (s *sqlStore) UpdateAssignmentSpan(ctx context.Context, id int64, span domain.TimeSpan) error {
	q := s.d.Rebind(`UPDATE assignments SET start_day=?, start_time=?, end_day=?, end_time=? WHERE assignment_id = ?`)
	return s.execOne(ctx, q, span.Start.Day, span.Start.Time, span.End.Day, span.End.Time, id)
}

func (s *sqlStore) UpdateAssignmentStatus(ctx context.Context, id int64, status domain.AssignmentStatus) error {
	q := s.d.Rebind(`UPDATE assignments SET status=? WHERE assignment_id = ?`)
	return s.execOne(ctx, q, string(status), id)
}

func (s *sqlStore) MarkNotificationScheduled(ctx context.Context, id int64, scheduled bool) error {
	q := s.d.Rebind(`UPDATE assignments SET notification_scheduled=? WHERE assignment_id = ?`)
	return s.execOne(ctx, q, scheduled, id)
}

// ---- Reminder jobs ----

// UpsertJob writes the job under its deterministic key: last writer wins,
// so concurrent reschedules of one assignment converge to a single fire time.
func (s *sqlStore) UpsertJob(ctx context.Context, j JobRecord) error {
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return err
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	q := s.d.Rebind(`INSERT INTO notification_jobs(task_id, assignment_id, fire_at, payload, created_at)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(task_id, assignment_id) DO UPDATE SET fire_at=excluded.fire_at, payload=excluded.payload, created_at=excluded.created_at`)
	_, err = s.db.ExecContext(ctx, q,
		j.Key.TaskID, j.Key.AssignmentID, j.FireAt.Format(timeFormat), string(payload), j.CreatedAt.Format(timeFormat))
	return err
}

// DeleteJob removes the job if present. Removing an absent job is not an
// error: it may have already fired and self-deleted.
func (s *sqlStore) DeleteJob(ctx context.Context, key JobKey) error {
	q := s.d.Rebind(`DELETE FROM notification_jobs WHERE task_id = ? AND assignment_id = ?`)
	_, err := s.db.ExecContext(ctx, q, key.TaskID, key.AssignmentID)
	return err
}

func (s *sqlStore) GetJob(ctx context.Context, key JobKey) (JobRecord, bool, error) {
	q := s.d.Rebind(`SELECT task_id, assignment_id, fire_at, payload, created_at
		 FROM notification_jobs WHERE task_id = ? AND assignment_id = ?`)
	j, err := s.scanJob(s.db.QueryRowContext(ctx, q, key.TaskID, key.AssignmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, false, nil
	}
	if err != nil {
		return JobRecord{}, false, err
	}
	return j, true, nil
}

func (s *sqlStore) ListJobs(ctx context.Context) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, assignment_id, fire_at, payload, created_at FROM notification_jobs ORDER BY fire_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		j, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *sqlStore) scanJob(row interface{ Scan(...any) error }) (JobRecord, error) {
	var j JobRecord
	var fireAt, payload, created string
	if err := row.Scan(&j.Key.TaskID, &j.Key.AssignmentID, &fireAt, &payload, &created); err != nil {
		return JobRecord{}, err
	}
	var err error
	j.FireAt, err = time.Parse(timeFormat, fireAt)
	if err != nil {
		return JobRecord{}, fmt.Errorf("job %s: bad fire_at %q: %w", j.Key, fireAt, err)
	}
	if err := json.Unmarshal([]byte(payload), &j.Payload); err != nil {
		return JobRecord{}, fmt.Errorf("job %s: bad payload: %w", j.Key, err)
	}
	j.CreatedAt, _ = time.Parse(timeFormat, created)
	return j, nil
}

// ---- Audit ----

func (s *sqlStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	q := s.d.Rebind(`INSERT INTO audit_log(at, actor_id, action, target, detail) VALUES(?,?,?,?,?)`)
	_, err := s.db.ExecContext(ctx, q, e.At.Format(timeFormat), e.ActorID, e.Action, e.Target, e.Detail)
	return err
}

// execOne runs an UPDATE expected to touch exactly one row and maps zero
// rows to ErrNotFound.
func (s *sqlStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*sqlStore)(nil)
