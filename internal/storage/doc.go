// Package storage is the durable system of record: volunteers, tasks,
// assignments, pending reminder jobs, and the audit log.
//
// Two backends share one SQL implementation behind a small dialect shim:
//   - sqlite (modernc.org/sqlite, pure Go, WAL)
//   - postgres (lib/pq)
//
// The notification_jobs table is the restart-safe half of the reminder
// runtime: rows are upserted under the deterministic (task, assignment) key
// with last-writer-wins semantics and deleted when a job is consumed.
package storage
