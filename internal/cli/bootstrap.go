package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"volbot/internal/config"
	"volbot/internal/eventclock"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

// offline holds the subset of the app graph that operator subcommands need:
// config, clock and storage, with no telegram connection.
type offline struct {
	cfg   *config.Config
	clock *eventclock.Clock
	store storage.Store
}

func openOffline(cmd *cobra.Command) (*offline, error) {
	configPath, _ := cmd.Flags().GetString("config")
	envPath, _ := cmd.Flags().GetString("env")

	if err := config.LoadDotEnv(envPath); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	manager := config.NewManager(configPath)
	cfg, err := manager.Parse()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Parse, not Load: offline commands work without a telegram token.

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
	}, logx.Nop())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &offline{cfg: cfg, clock: clock, store: store}, nil
}

func (o *offline) close() {
	_ = o.store.Close()
}
