package config

import (
	"fmt"
)

// Config is the daemon configuration.
//
// The file may be JSON or YAML; both are decoded strictly so typos and
// removed legacy keys are caught at load time rather than silently ignored.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Server    ServerConfig    `json:"server"`
	Workday   WorkdayConfig   `json:"workday"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./lexsched.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ServerConfig controls the HTTP surface consumed by the calendar UI.
//
// All timeouts are Go duration strings (e.g. "5s", "1m").
type ServerConfig struct {
	Addr         string `json:"addr,omitempty"` // default: "127.0.0.1:8087"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	// RatePerSec/RateBurst bound mutation requests per client address;
	// 0 disables rate limiting.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	RateBurst  int `json:"rate_burst,omitempty"`
}

// WorkdayConfig bounds automatic placement. Changing it requires a daemon
// restart; mid-flight window changes would make concurrent placements
// inconsistent.
//
// Defaults (when fields are omitted/zero):
//   - day_start_hour: 8
//   - day_end_hour: 18
//   - daily_capacity_hours: 8
//   - max_lookback_days: 14
type WorkdayConfig struct {
	DayStartHour       int     `json:"day_start_hour,omitempty"`
	DayEndHour         int     `json:"day_end_hour,omitempty"`
	DailyCapacityHours float64 `json:"daily_capacity_hours,omitempty"`
	MaxLookbackDays    int     `json:"max_lookback_days,omitempty"`
}

// SchedulerConfig tunes the orchestrator and the periodic sweep.
type SchedulerConfig struct {
	// LockTimeout is the per-assignee lock acquisition timeout
	// (Go duration string). Default "2s".
	LockTimeout string `json:"lock_timeout,omitempty"`

	SweepEnabled  bool   `json:"sweep_enabled"`
	SweepSchedule string `json:"sweep_schedule,omitempty"` // cron spec, default "@hourly"
	HistorySize   int    `json:"history_size,omitempty"`
}

// WithDefaults fills zero fields with stock values.
func (c Config) WithDefaults() Config {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8087"
	}
	if c.Workday.DayStartHour == 0 && c.Workday.DayEndHour == 0 {
		c.Workday.DayStartHour = 8
		c.Workday.DayEndHour = 18
	}
	if c.Workday.DailyCapacityHours == 0 {
		c.Workday.DailyCapacityHours = 8
	}
	if c.Workday.MaxLookbackDays == 0 {
		c.Workday.MaxLookbackDays = 14
	}
	if c.Scheduler.SweepSchedule == "" {
		c.Scheduler.SweepSchedule = "@hourly"
	}
	if c.Scheduler.HistorySize == 0 {
		c.Scheduler.HistorySize = 200
	}
	return c
}

// Validate rejects configs that cannot run.
func (c Config) Validate() error {
	w := c.Workday
	if w.DayStartHour < 0 || w.DayEndHour > 24 || w.DayStartHour >= w.DayEndHour {
		return fmt.Errorf("workday: invalid window %d..%d", w.DayStartHour, w.DayEndHour)
	}
	if w.DailyCapacityHours <= 0 {
		return fmt.Errorf("workday: daily_capacity_hours must be > 0")
	}
	if w.DailyCapacityHours > float64(w.DayEndHour-w.DayStartHour) {
		return fmt.Errorf("workday: capacity %.1fh exceeds the %dh window", w.DailyCapacityHours, w.DayEndHour-w.DayStartHour)
	}
	if w.MaxLookbackDays < 1 || w.MaxLookbackDays > 365 {
		return fmt.Errorf("workday: max_lookback_days must be in 1..365")
	}
	if _, err := ParseDurationField("scheduler.lock_timeout", c.Scheduler.LockTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	for _, f := range []struct{ path, raw string }{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.idle_timeout", c.Server.IdleTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	return nil
}
