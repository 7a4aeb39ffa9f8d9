package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// dialect absorbs the two syntactic differences between the backends:
// placeholder style (? vs $n) and how an INSERT reports the generated id
// (LastInsertId vs RETURNING).
type dialect interface {
	Rebind(query string) string
	InsertID(ctx context.Context, db *sql.DB, query, idColumn string, args ...any) (int64, error)
}

type sqliteDialect struct{}

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) InsertID(ctx context.Context, db *sql.DB, query, _ string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type postgresDialect struct{}

// Rebind rewrites ? placeholders into $1..$n.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d postgresDialect) InsertID(ctx context.Context, db *sql.DB, query, idColumn string, args ...any) (int64, error) {
	var id int64
	q := d.Rebind(query + " RETURNING " + idColumn)
	if err := db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
