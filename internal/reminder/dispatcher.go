package reminder

import (
	"context"
	"errors"
	"sync"

	"volbot/internal/domain"
	"volbot/internal/gateway"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

// Dispatcher executes a job at fire time. It receives only the serializable
// payload, never a live record: everything is re-read from the store, so a
// job firing for state that changed since scheduling resolves to either an
// up-to-date reminder or a silent no-op.
type Dispatcher struct {
	log   logx.Logger
	store RecordStore
	gw    gateway.Gateway
	sched *Scheduler

	mu       sync.Mutex
	verbose  bool
	adminIDs []int64
}

func NewDispatcher(cfg Config, store RecordStore, gw gateway.Gateway, sched *Scheduler, log logx.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		log:      log,
		store:    store,
		gw:       gw,
		sched:    sched,
		verbose:  cfg.Verbose,
		adminIDs: cfg.AdminIDs,
	}
}

// Apply updates the verbose flag and admin list (config hot reload).
func (d *Dispatcher) Apply(cfg Config) {
	d.mu.Lock()
	d.verbose = cfg.Verbose
	d.adminIDs = append([]int64(nil), cfg.AdminIDs...)
	d.mu.Unlock()
}

// Dispatch runs at fire time.
//
// A missing or cancelled assignment, or a missing task, is an expected race
// with edits that happened after scheduling: the dispatcher does nothing and
// returns nil. A gateway failure is per-recipient: it is logged and also
// returns nil, never aborting sibling dispatches.
func (d *Dispatcher) Dispatch(ctx context.Context, p storage.JobPayload) error {
	a, err := d.store.GetAssignment(ctx, p.AssignmentID)
	if errors.Is(err, storage.ErrNotFound) {
		d.log.Debug("assignment gone; reminder skipped", logx.Int64("assignment_id", p.AssignmentID))
		return nil
	}
	if err != nil {
		return err
	}
	if !a.Active() {
		d.log.Debug("assignment cancelled; reminder skipped", logx.Int64("assignment_id", a.ID))
		return nil
	}

	task, err := d.store.GetTask(ctx, p.TaskID)
	if errors.Is(err, storage.ErrNotFound) {
		d.log.Debug("task gone; reminder skipped", logx.Int64("task_id", p.TaskID))
		return nil
	}
	if err != nil {
		return err
	}

	vol, err := d.store.GetVolunteer(ctx, a.VolunteerID)
	if errors.Is(err, storage.ErrNotFound) {
		d.log.Warn("volunteer record missing; reminder skipped",
			logx.Int64("assignment_id", a.ID), logx.Int64("volunteer_id", a.VolunteerID))
		return nil
	}
	if err != nil {
		return err
	}

	text := reminderText(task, a, d.sched.LeadTime())
	sendErr := d.gw.SendText(ctx, vol.ID, text)
	if sendErr != nil {
		// Recipient-level failure (blocked bot, deleted account, ...).
		// Recorded for operators; never escalated.
		d.log.Error("reminder delivery failed",
			logx.Int64("volunteer_id", vol.ID), logx.Int64("assignment_id", a.ID),
			logx.String("task", task.Title), logx.Err(sendErr))
	} else {
		d.log.Info("reminder delivered",
			logx.Int64("volunteer_id", vol.ID), logx.Int64("assignment_id", a.ID),
			logx.String("task", task.Title))
	}

	d.fanOutOutcome(ctx, task, vol, sendErr)
	return nil
}

// fanOutOutcome informs admins about delivery outcome when verbose mode is
// on. Its own failures cannot affect the primary delivery outcome.
func (d *Dispatcher) fanOutOutcome(ctx context.Context, task domain.Task, vol domain.Volunteer, sendErr error) {
	d.mu.Lock()
	verbose := d.verbose
	admins := d.adminIDs
	d.mu.Unlock()
	if !verbose || len(admins) == 0 {
		return
	}
	text := adminOutcomeText(task, vol, sendErr)
	for _, id := range admins {
		if err := d.gw.SendText(ctx, id, text); err != nil {
			d.log.Debug("admin fan-out failed", logx.Int64("admin_id", id), logx.Err(err))
		}
	}
}
