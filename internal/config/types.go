package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Event    EventConfig    `json:"event"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Reminder ReminderConfig `json:"reminder"`
}

type TelegramConfig struct {
	Token       string  `json:"token,omitempty"` // normally supplied via BOT_TOKEN in .env
	AdminIDs    []int64 `json:"admin_ids"`
	PollTimeout string  `json:"poll_timeout,omitempty"` // Go duration string
	RatePerSec  int     `json:"rate_per_sec,omitempty"` // outbound send rate limit
}

// EventConfig is the event window. It is read once at startup and fed into
// the clock constructor; it is deliberately NOT hot-reloadable.
type EventConfig struct {
	StartDate string `json:"start_date"` // "2006-01-02" or "2006-01-02 15:04"
	DaysCount int    `json:"days_count"`
	DebugMode bool   `json:"debug_mode,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"` // default true
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "sqlite" (default) or "postgres"
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"` // normally supplied via DATABASE_DSN in .env
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// ReminderConfig tunes the notification scheduler. All durations are Go
// duration strings.
type ReminderConfig struct {
	LeadTime       string `json:"lead_time,omitempty"`       // default "5m"
	Workers        int    `json:"workers,omitempty"`         // default 2
	QueueSize      int    `json:"queue_size,omitempty"`      // default 64
	ReconcileEvery string `json:"reconcile_every,omitempty"` // default "5m", "" keeps default, "0s" disables
	Verbose        bool   `json:"verbose,omitempty"`         // fan delivery outcomes out to admins
}

// Start parses the configured start date. A bare date means midnight local
// time, which keeps day arithmetic aligned with calendar days.
func (e EventConfig) Start() (time.Time, error) {
	s := strings.TrimSpace(e.StartDate)
	if s == "" {
		return time.Time{}, errors.New("event.start_date is required")
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("event.start_date: cannot parse %q", s)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (config or BOT_TOKEN)")
	}
	if _, err := c.Event.Start(); err != nil {
		return err
	}
	if c.Event.DaysCount < 1 {
		return fmt.Errorf("event.days_count must be >= 1, got %d", c.Event.DaysCount)
	}
	for _, field := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"reminder.lead_time", c.Reminder.LeadTime},
		{"reminder.reconcile_every", c.Reminder.ReconcileEvery},
	} {
		if _, err := ParseDurationField(field.path, field.raw); err != nil {
			return err
		}
	}
	return nil
}

func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}

// ParseDurationField parses one of the optional duration strings above.
// An empty value means "unset" and parses to zero; callers pick their own
// default for that. Negative durations are never meaningful here.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}
