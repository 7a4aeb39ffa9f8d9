package reminder

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"volbot/internal/eventclock"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

// firing is what travels from a timer callback to the worker pool. Only the
// key: the worker re-reads the durable row and treats it as authoritative.
type firing struct {
	key    storage.JobKey
	fireAt time.Time
}

// Runtime owns the in-process timers for pending jobs and the worker pool
// that consumes firings. It is the volatile half of the job store: timers
// are rebuilt from the durable rows on every start.
type Runtime struct {
	log   logx.Logger
	clock *eventclock.Clock
	jobs  JobStore
	exec  func(ctx context.Context, p storage.JobPayload) error

	mu       sync.Mutex
	cfg      Config
	queue    chan firing
	stopCh   chan struct{}
	runCtx   context.Context
	cancel   context.CancelFunc
	workerWG sync.WaitGroup

	// tmu guards the timer table. ver suppresses stale callbacks from
	// timers that were replaced or disarmed after the callback was already
	// committed to run.
	tmu    sync.Mutex
	timers map[storage.JobKey]*time.Timer
	ver    map[storage.JobKey]uint64
}

func NewRuntime(cfg Config, clock *eventclock.Clock, jobs JobStore, log logx.Logger) *Runtime {
	return &Runtime{
		log:    log,
		clock:  clock,
		jobs:   jobs,
		cfg:    cfg.withDefaults(),
		timers: map[storage.JobKey]*time.Timer{},
		ver:    map[storage.JobKey]uint64{},
	}
}

// SetExecutor installs the function invoked for each consumed job. Must be
// called before Start.
func (r *Runtime) SetExecutor(exec func(ctx context.Context, p storage.JobPayload) error) {
	r.exec = exec
}

// Start launches the worker pool and re-arms a timer for every job found in
// the durable store (crash recovery).
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.stopCh != nil {
		r.mu.Unlock()
		return nil
	}
	r.stopCh = make(chan struct{})
	r.runCtx, r.cancel = context.WithCancel(ctx)
	r.queue = make(chan firing, r.cfg.QueueSize)

	runCtx := r.runCtx
	stopCh := r.stopCh
	queue := r.queue
	workers := r.cfg.Workers
	r.mu.Unlock()

	r.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer r.workerWG.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("panic in reminder worker",
						logx.Int("worker", idx), logx.Any("panic", rec),
						logx.String("stack", string(debug.Stack())))
				}
			}()
			r.worker(runCtx, stopCh, queue)
		}()
	}

	jobs, err := r.jobs.ListJobs(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		r.Arm(j.Key, j.FireAt)
	}
	r.log.Info("reminder runtime started", logx.Int("workers", workers), logx.Int("restored_jobs", len(jobs)))
	return nil
}

func (r *Runtime) Stop(ctx context.Context) {
	r.mu.Lock()
	if r.stopCh == nil {
		r.mu.Unlock()
		return
	}
	stopCh := r.stopCh
	cancel := r.cancel
	r.stopCh = nil
	r.cancel = nil
	r.queue = nil
	r.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}

	// Stop runtime timers; durable rows stay so the next Start re-arms them.
	r.tmu.Lock()
	for _, t := range r.timers {
		_ = t.Stop()
	}
	r.timers = map[storage.JobKey]*time.Timer{}
	r.tmu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	r.log.Info("reminder runtime stopped")
}

// Apply updates the tunable parts of the runtime config (worker count takes
// effect on next Start).
func (r *Runtime) Apply(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg.withDefaults()
	r.mu.Unlock()
}

// Arm (re)arms the timer for a job. An existing timer under the same key is
// replaced: the version bump makes its already-queued callback a no-op, so
// the old fire time can never produce a firing after this returns.
func (r *Runtime) Arm(key storage.JobKey, fireAt time.Time) {
	delay := fireAt.Sub(r.clock.Now())
	if delay < 0 {
		delay = 0
	}

	r.tmu.Lock()
	defer r.tmu.Unlock()
	if t, ok := r.timers[key]; ok {
		_ = t.Stop()
	}
	ver := r.ver[key] + 1
	r.ver[key] = ver

	localKey := key
	localVer := ver
	localAt := fireAt
	r.timers[key] = time.AfterFunc(delay, func() {
		r.tmu.Lock()
		if r.ver[localKey] != localVer {
			r.tmu.Unlock()
			return
		}
		delete(r.timers, localKey)
		delete(r.ver, localKey)
		r.tmu.Unlock()

		r.enqueue(firing{key: localKey, fireAt: localAt})
	})
}

// Disarm stops and forgets the runtime timer for a key. The durable row is
// the caller's business.
func (r *Runtime) Disarm(key storage.JobKey) {
	r.tmu.Lock()
	defer r.tmu.Unlock()
	if t, ok := r.timers[key]; ok {
		_ = t.Stop()
		delete(r.timers, key)
	}
	// bump so an in-flight callback for this key is ignored
	r.ver[key]++
}

// Armed reports whether a runtime timer currently exists for the key.
func (r *Runtime) Armed(key storage.JobKey) bool {
	r.tmu.Lock()
	defer r.tmu.Unlock()
	_, ok := r.timers[key]
	return ok
}

func (r *Runtime) enqueue(f firing) {
	r.mu.Lock()
	q := r.queue
	r.mu.Unlock()
	if q == nil {
		r.log.Debug("runtime not running; dropping firing", logx.String("job", f.key.String()))
		return
	}
	select {
	case q <- f:
	default:
		r.log.Warn("reminder queue full; dropping firing",
			logx.String("job", f.key.String()), logx.Int("queue_cap", cap(q)))
	}
}

func (r *Runtime) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan firing) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case f := <-queue:
			r.consume(ctx, f)
		}
	}
}

// consume resolves a firing against the durable store and executes it.
// The stored row wins every disagreement: if it is gone the job was
// cancelled, and if its fire time moved a newer timer owns it.
func (r *Runtime) consume(ctx context.Context, f firing) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	j, ok, err := r.jobs.GetJob(cctx, f.key)
	if err != nil {
		r.log.Warn("job lookup failed; leaving row for reconcile", logx.String("job", f.key.String()), logx.Err(err))
		return
	}
	if !ok {
		r.log.Debug("job vanished before firing (cancelled)", logx.String("job", f.key.String()))
		return
	}
	if absDiff(j.FireAt, f.fireAt) > time.Second {
		r.log.Debug("job was rescheduled; stale firing ignored",
			logx.String("job", f.key.String()), logx.Time("stored", j.FireAt), logx.Time("fired", f.fireAt))
		return
	}

	// Consume the row first: a job fires at most once, even if dispatch
	// fails afterwards. Delivery errors are terminal, never retried.
	if err := r.jobs.DeleteJob(cctx, f.key); err != nil {
		r.log.Warn("job delete failed; skipping dispatch to avoid double fire",
			logx.String("job", f.key.String()), logx.Err(err))
		return
	}

	start := time.Now()
	if err := r.exec(cctx, j.Payload); err != nil {
		r.log.Warn("job dispatch failed", logx.String("job", f.key.String()),
			logx.Duration("dur", time.Since(start)), logx.Err(err))
		return
	}
	r.log.Debug("job dispatched", logx.String("job", f.key.String()), logx.Duration("dur", time.Since(start)))
}

func absDiff(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
