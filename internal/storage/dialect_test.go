package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"volbot/internal/domain"
	"volbot/pkg/logx"
)

func TestPostgresRebind(t *testing.T) {
	d := postgresDialect{}
	cases := []struct{ in, want string }{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = $1"},
		{"INSERT INTO t(a,b,c) VALUES(?,?,?)", "INSERT INTO t(a,b,c) VALUES($1,$2,$3)"},
		{"UPDATE t SET a=?, b=? WHERE id = ?", "UPDATE t SET a=$1, b=$2 WHERE id = $3"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, d.Rebind(c.in))
	}
}

func TestSqliteRebindIsPassthrough(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ?"
	require.Equal(t, q, sqliteDialect{}.Rebind(q))
}

// The postgres insert path must use RETURNING instead of LastInsertId, which
// lib/pq does not support.
func TestPostgresInsertIDUsesReturning(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT INTO tasks.+RETURNING task_id`).
		WillReturnRows(sqlmock.NewRows([]string{"task_id"}).AddRow(int64(7)))

	st := &sqlStore{db: db, d: postgresDialect{}, log: logx.Nop()}
	task := domain.Task{Title: "Stage setup", Span: span(1, "10:00", 1, "12:00")}
	require.NoError(t, st.CreateTask(context.Background(), &task))
	require.Equal(t, int64(7), task.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMapsZeroRowsToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE assignments SET status=\$1 WHERE assignment_id = \$2`).
		WithArgs("cancelled", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	st := &sqlStore{db: db, d: postgresDialect{}, log: logx.Nop()}
	err = st.UpdateAssignmentStatus(context.Background(), 9, domain.AssignmentCancelled)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobUpsert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO notification_jobs.+ON CONFLICT\(task_id, assignment_id\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	st := &sqlStore{db: db, d: postgresDialect{}, log: logx.Nop()}
	require.NoError(t, st.UpsertJob(context.Background(), JobRecord{
		Key:     JobKey{TaskID: 1, AssignmentID: 2},
		FireAt:  time.Now(),
		Payload: JobPayload{TaskID: 1, AssignmentID: 2},
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
