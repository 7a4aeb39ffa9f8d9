package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `telegram:
  token: "123:abc"
  admin_ids: [900]
  rate_per_sec: 20
event:
  start_date: "2026-07-10"
  days_count: 3
  debug_mode: true
logging:
  level: debug
storage:
  driver: sqlite
  path: data/volbot.db
reminder:
  lead_time: 10m
  verbose: true
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidYAML(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminIDs) != 1 || cfg.Telegram.AdminIDs[0] != 900 {
		t.Fatalf("admin_ids = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Event.DaysCount != 3 || !cfg.Event.DebugMode {
		t.Fatalf("event = %+v", cfg.Event)
	}
	if cfg.Reminder.LeadTime != "10m" || !cfg.Reminder.Verbose {
		t.Fatalf("reminder = %+v", cfg.Reminder)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get did not return the committed config")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", validYAML+"bogus_section:\n  x: 1\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatalf("unknown section accepted")
	}
}

func TestEnvOverlayWinsOverFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env:token")
	t.Setenv("DATABASE_DSN", "postgres://env")

	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "env:token" {
		t.Fatalf("token = %q, env overlay ignored", cfg.Telegram.Token)
	}
	if cfg.Storage.DSN != "postgres://env" {
		t.Fatalf("dsn = %q, env overlay ignored", cfg.Storage.DSN)
	}
}

func TestValidateRequirements(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing token",
			body: strings.Replace(validYAML, `token: "123:abc"`, `token: ""`, 1),
			want: "telegram.token",
		},
		{
			name: "missing start date",
			body: strings.Replace(validYAML, `start_date: "2026-07-10"`, `start_date: ""`, 1),
			want: "start_date",
		},
		{
			name: "bad days count",
			body: strings.Replace(validYAML, "days_count: 3", "days_count: 0", 1),
			want: "days_count",
		},
		{
			name: "bad duration",
			body: strings.Replace(validYAML, "lead_time: 10m", `lead_time: "soon"`, 1),
			want: "lead_time",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewManager(writeConfig(t, "config.yaml", c.body))
			_, err := m.Load()
			if err == nil {
				t.Fatalf("invalid config accepted")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Fatalf("error %q does not mention %q", err, c.want)
			}
		})
	}
}

func TestEventStartFormats(t *testing.T) {
	for _, s := range []string{"2026-07-10", "2026-07-10 09:00"} {
		e := EventConfig{StartDate: s}
		if _, err := e.Start(); err != nil {
			t.Fatalf("Start(%q): %v", s, err)
		}
	}
	if _, err := (EventConfig{StartDate: "10.07.2026"}).Start(); err == nil {
		t.Fatalf("bad date format accepted")
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: %v %v", d, err)
	}
	if d, err := ParseDurationField("x", " 90s "); err != nil || d != 90*time.Second {
		t.Fatalf("padded: %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5m"); err == nil {
		t.Fatalf("negative duration accepted")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatalf("garbage duration accepted")
	}
}
