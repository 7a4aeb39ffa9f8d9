package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"volbot/internal/eventclock"
	"volbot/internal/gateway"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

// Service bundles the runtime, the scheduler and the dispatcher into one
// startable unit, plus a periodic reconcile sweep that repairs the job set
// after partial failures.
type Service struct {
	log   logx.Logger
	clock *eventclock.Clock
	store Store

	rt    *Runtime
	sched *Scheduler
	disp  *Dispatcher

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	every   time.Duration
	started bool
}

func NewService(cfg Config, clock *eventclock.Clock, store Store, gw gateway.Gateway, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	rt := NewRuntime(cfg, clock, store, log)
	sched := NewScheduler(cfg, clock, store, rt, log)
	disp := NewDispatcher(cfg, store, gw, sched, log)
	rt.SetExecutor(disp.Dispatch)
	return &Service{
		log:   log,
		clock: clock,
		store: store,
		rt:    rt,
		sched: sched,
		disp:  disp,
		every: cfg.ReconcileEvery,
	}
}

// Scheduler exposes the scheduling surface for the roster and bot layers.
func (s *Service) Scheduler() *Scheduler { return s.sched }

// Runtime exposes the timer runtime, mainly for tests and ops tooling.
func (s *Service) Runtime() *Runtime { return s.rt }

// Start restores timers from the durable store, runs one immediate reconcile
// and arms the periodic sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	every := s.every
	s.mu.Unlock()

	if err := s.rt.Start(ctx); err != nil {
		return fmt.Errorf("reminder: start runtime: %w", err)
	}

	if err := s.Reconcile(ctx); err != nil {
		// Startup reconcile failing is not fatal; the sweep retries.
		s.log.Warn("startup reconcile incomplete", logx.Err(err))
	}

	if every > 0 {
		c := cron.New()
		id, err := c.AddFunc(fmt.Sprintf("@every %s", every), func() {
			cctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.Reconcile(cctx); err != nil {
				s.log.Warn("reconcile sweep incomplete", logx.Err(err))
			}
		})
		if err != nil {
			return fmt.Errorf("reminder: schedule reconcile: %w", err)
		}
		c.Start()
		s.mu.Lock()
		s.cron = c
		s.entry = id
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.started = false
	s.mu.Unlock()

	if c != nil {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	s.rt.Stop(ctx)
}

// Apply pushes a config hot reload down to all three components. A changed
// reconcile interval takes effect on the next Start.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.rt.Apply(cfg)
	s.sched.Apply(cfg)
	s.disp.Apply(cfg)
	s.mu.Lock()
	s.every = cfg.ReconcileEvery
	s.mu.Unlock()
}

// Reconcile repairs drift between assignments, durable jobs and runtime
// timers: active assignments without a registered job get one scheduled
// (unless their start has already passed), jobs whose assignment is
// cancelled or gone are removed, and a durable row that lost its in-process
// timer (a firing dropped on a full queue, or a stale fire skipped after an
// interleaved re-arm) gets its timer re-armed.
func (s *Service) Reconcile(ctx context.Context) error {
	var firstErr error

	missing, err := s.store.ListUnscheduledAssignments(ctx)
	if err != nil {
		firstErr = err
	}
	scheduled := 0
	for i := range missing {
		a := missing[i]
		if !a.Active() {
			continue
		}
		if !s.clock.IsFuture(a.Span.Start) {
			// Task already started; a late reminder would be noise.
			continue
		}
		if err := s.sched.Schedule(ctx, &a); err != nil {
			s.log.Warn("reconcile: schedule failed", logx.Int64("assignment_id", a.ID), logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		scheduled++
	}

	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		jobs = nil
	}
	pruned := 0
	rearmed := 0
	for _, j := range jobs {
		a, err := s.store.GetAssignment(ctx, j.Key.AssignmentID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
			continue
		case a.Active():
			// The row is authoritative; a live row with no timer would
			// otherwise wait for the next restart.
			if !s.rt.Armed(j.Key) {
				s.rt.Arm(j.Key, j.FireAt)
				rearmed++
			}
			continue
		}
		if err := s.sched.CancelKey(ctx, j.Key, nil); err != nil {
			s.log.Warn("reconcile: prune failed", logx.String("job", j.Key.String()), logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pruned++
	}

	if scheduled > 0 || pruned > 0 || rearmed > 0 {
		s.log.Info("reconcile sweep",
			logx.Int("scheduled", scheduled), logx.Int("pruned", pruned), logx.Int("rearmed", rearmed))
	}
	return firstErr
}
