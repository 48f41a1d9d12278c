package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadJSONWithDefaults(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "config.json", `{
		"storage": { "driver": "sqlite", "path": "./test.db" },
		"scheduler": { "sweep_enabled": true }
	}`)

	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Server.Addr != "127.0.0.1:8087" {
		t.Errorf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Workday.DayStartHour != 8 || cfg.Workday.DayEndHour != 18 {
		t.Errorf("default window = %d..%d", cfg.Workday.DayStartHour, cfg.Workday.DayEndHour)
	}
	if cfg.Workday.MaxLookbackDays != 14 {
		t.Errorf("default lookback = %d", cfg.Workday.MaxLookbackDays)
	}
	if cfg.Scheduler.SweepSchedule != "@hourly" {
		t.Errorf("default sweep schedule = %q", cfg.Scheduler.SweepSchedule)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "config.yaml", `
logging:
  level: debug
workday:
  day_start_hour: 9
  day_end_hour: 17
  daily_capacity_hours: 6
scheduler:
  sweep_enabled: false
  lock_timeout: 500ms
`)

	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Workday.DayEndHour != 17 {
		t.Errorf("day_end_hour = %d", cfg.Workday.DayEndHour)
	}
	if cfg.Scheduler.LockTimeout != "500ms" {
		t.Errorf("lock_timeout = %q", cfg.Scheduler.LockTimeout)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "config.json", `{"loging": {"level": "info"}}`)
	if _, err := NewManager(p).Load(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "config.json", `{"scheduler":{"sweep_enabled":false}} {"extra":1}`)
	if _, err := NewManager(p).Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "inverted window",
			mutate: func(c *Config) { c.Workday.DayStartHour = 18; c.Workday.DayEndHour = 8 },
			want:   "invalid window",
		},
		{
			name:   "capacity exceeds window",
			mutate: func(c *Config) { c.Workday.DailyCapacityHours = 11 },
			want:   "exceeds",
		},
		{
			name:   "lookback out of range",
			mutate: func(c *Config) { c.Workday.MaxLookbackDays = 400 },
			want:   "max_lookback_days",
		},
		{
			name:   "bad lock timeout",
			mutate: func(c *Config) { c.Scheduler.LockTimeout = "fast" },
			want:   "lock_timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Config{}.WithDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{}
	second := &Config{Logging: LoggingConfig{Level: "debug"}}
	m.publish(first)
	m.publish(second) // buffer full: oldest dropped, latest delivered

	got := <-ch
	if got.Logging.Level != "debug" {
		t.Errorf("subscriber got stale config, level = %q", got.Logging.Level)
	}
}
