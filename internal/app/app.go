// Package app assembles the bot process: config, logging, storage, the
// event clock, the telegram adapter, the reminder pipeline and the command
// handlers, plus config hot reload plumbing between them.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"volbot/internal/bot"
	"volbot/internal/config"
	"volbot/internal/eventclock"
	"volbot/internal/gateway/telegram"
	"volbot/internal/reminder"
	"volbot/internal/roster"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

type Options struct {
	ConfigPath string
	EnvPath    string
}

type App struct {
	log    logx.Logger
	logSvc *logx.Service

	manager  *config.Manager
	clock    *eventclock.Clock
	store    storage.Store
	adapter  *telegram.Adapter
	reminder *reminder.Service
	roster   *roster.Service
	handlers *bot.Handlers
}

// New builds the full object graph from the config file. Nothing is started
// yet; Run does that.
func New(opts Options) (*App, error) {
	if err := config.LoadDotEnv(opts.EnvPath); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	manager := config.NewManager(opts.ConfigPath)
	cfg, err := manager.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logConfig(cfg))
	manager.SetLogger(log.With(logx.String("comp", "config")))

	start, err := cfg.Event.Start()
	if err != nil {
		return nil, err
	}
	clock, err := eventclock.New(eventclock.Config{
		StartDate: start,
		DaysCount: cfg.Event.DaysCount,
		DebugMode: cfg.Event.DebugMode,
	})
	if err != nil {
		return nil, err
	}

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		DSN:         cfg.Storage.DSN,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	remCfg, err := reminderConfig(cfg)
	if err != nil {
		return nil, err
	}
	remSvc := reminder.NewService(remCfg, clock, store, adapter, log.With(logx.String("comp", "reminder")))

	ros := roster.New(clock, store, remSvc.Scheduler(), log.With(logx.String("comp", "roster")))

	handlers := bot.New(bot.Config{AdminIDs: cfg.Telegram.AdminIDs}, clock, store, ros,
		log.With(logx.String("comp", "bot")))
	handlers.Register(adapter.Bot())

	return &App{
		log:      log,
		logSvc:   logSvc,
		manager:  manager,
		clock:    clock,
		store:    store,
		adapter:  adapter,
		reminder: remSvc,
		roster:   ros,
		handlers: handlers,
	}, nil
}

// Clock, Store and Roster expose wired components for operator subcommands
// that reuse the app bootstrap without running the bot.
func (a *App) Clock() *eventclock.Clock    { return a.clock }
func (a *App) Store() storage.Store        { return a.store }
func (a *App) Roster() *roster.Service     { return a.roster }
func (a *App) Reminder() *reminder.Service { return a.reminder }

// Run starts everything and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting", logx.String("event_status", a.clock.Status()),
		logx.Bool("debug_mode", a.clock.DebugMode()))

	if err := a.reminder.Start(ctx); err != nil {
		return err
	}
	a.adapter.Start(ctx)

	watchDone := make(chan error, 1)
	go func() { watchDone <- a.manager.Watch(ctx) }()
	sub := a.manager.Subscribe(1)
	go a.consumeReloads(sub)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a.manager.Unsubscribe(sub)
	a.adapter.Stop(stopCtx)
	a.reminder.Stop(stopCtx)
	<-watchDone

	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
	a.logSvc.Close()
	a.log.Info("stopped")
	return nil
}

// Close tears down resources for non-serving uses of the app graph.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
	a.logSvc.Close()
}

// consumeReloads pushes committed config changes into the tunable
// components. The event window and the storage driver deliberately stay
// fixed for the process lifetime.
func (a *App) consumeReloads(sub chan *config.Config) {
	for cfg := range sub {
		a.logSvc.Apply(logConfig(cfg))
		a.adapter.ApplyRate(cfg.Telegram.RatePerSec)
		a.handlers.Apply(bot.Config{AdminIDs: cfg.Telegram.AdminIDs})
		remCfg, err := reminderConfig(cfg)
		if err != nil {
			a.log.Warn("reload: bad reminder config; keeping previous", logx.Err(err))
			continue
		}
		a.reminder.Apply(remCfg)
		a.log.Info("reload applied")
	}
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func reminderConfig(cfg *config.Config) (reminder.Config, error) {
	// An unset lead_time parses to zero; the reminder package turns that
	// into its own default.
	lead, err := config.ParseDurationField("reminder.lead_time", cfg.Reminder.LeadTime)
	if err != nil {
		return reminder.Config{}, err
	}
	// "" means the 5m default; an explicit "0s" disables the sweep.
	every := 5 * time.Minute
	if cfg.Reminder.ReconcileEvery != "" {
		every, err = config.ParseDurationField("reminder.reconcile_every", cfg.Reminder.ReconcileEvery)
		if err != nil {
			return reminder.Config{}, err
		}
	}
	return reminder.Config{
		LeadTime:       lead,
		Workers:        cfg.Reminder.Workers,
		QueueSize:      cfg.Reminder.QueueSize,
		ReconcileEvery: every,
		Verbose:        cfg.Reminder.Verbose,
		AdminIDs:       cfg.Telegram.AdminIDs,
	}, nil
}
