// Package reminder is the assignment notification scheduler: it keeps one
// durable one-shot job per (task, assignment), arms an in-process timer for
// each, and at fire time re-reads the system of record before sending the
// reminder through the messaging gateway.
//
// # Lifecycle
//
// Schedule/Reschedule are a single upsert under the deterministic job key,
// so there is never a window with two live fire times for one assignment.
// Cancel is idempotent: removing an absent job (already fired, or never
// written) is a no-op.
//
// # Restarts
//
// Jobs live in the same durable store as the records they point at. On
// start the runtime re-arms a timer for every stored job; a periodic
// reconcile sweep re-schedules assignments whose job was lost before it was
// durably registered and prunes jobs whose assignment has been cancelled.
//
// # Races
//
// A cancellation racing an in-progress firing may still deliver one
// reminder; the dispatcher's re-read keeps the content current, and the
// window is bounded to a single in-flight firing.
package reminder
