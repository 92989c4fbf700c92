package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`

	// Scheduler controls the background job runner (backups, notification scans).
	Scheduler SchedulerConfig `json:"scheduler"`

	Backup        BackupConfig         `json:"backup"`
	Choices       ChoicesConfig        `json:"choices,omitempty"`
	Notifications *NotificationConfig  `json:"notifications,omitempty"`
}

// ServerConfig controls the HTTP API listener.
//
// All timeouts are Go duration strings (e.g. "10s", "1m").
// Prefer binding to localhost; this is a single-user application with no auth.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"` // default: "127.0.0.1:8350"

	CORSAllowedOrigins []string `json:"cors_allowed_origins,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
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

// StorageConfig controls the SQLite database.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the background job service.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	Workers int  `json:"workers,omitempty"`

	// DefaultTimeout is a Go duration string applied to jobs without their own.
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`

	// Job timezone (IANA TZ, e.g. "America/New_York").
	Timezone string `json:"timezone,omitempty"`
}

// BackupConfig controls automated database backups.
//
// Frequency is one of "hourly", "daily", "weekly"; Hour/Minute pick the time
// of day (ignored for hourly, which uses Minute only). Retention is the
// number of archives to keep when pruning (0 disables pruning).
type BackupConfig struct {
	Enabled   bool   `json:"enabled"`
	Dir       string `json:"dir,omitempty"` // default: "./backups"
	Frequency string `json:"frequency,omitempty"`
	Hour      int    `json:"hour,omitempty"`
	Minute    int    `json:"minute,omitempty"`
	Retention int    `json:"retention,omitempty"`
}

// ChoicesConfig controls the choice-option cache.
type ChoicesConfig struct {
	// CacheTTL is a Go duration string; default "1h". Mutations through the
	// API invalidate the cache explicitly, the TTL only bounds staleness from
	// out-of-band edits (e.g. a restored backup).
	CacheTTL string `json:"cache_ttl,omitempty"`
}

// NotificationConfig controls the scheduled notification scans.
//
// Schedules accept cron specs ("0 8 * * *"), @-descriptors ("@hourly") or
// plain durations ("24h"). If the whole section is omitted the scans default
// to enabled with the schedules below.
type NotificationConfig struct {
	Enabled          bool   `json:"enabled"`
	RatePerSec       int    `json:"rate_per_sec,omitempty"`
	OverdueSchedule  string `json:"overdue_schedule,omitempty"`  // default "@daily"
	ReminderSchedule string `json:"reminder_schedule,omitempty"` // default "@hourly"
	FollowUpSchedule string `json:"follow_up_schedule,omitempty"` // default "@daily"
}

// Validate checks cross-field constraints that the strict decoder can't.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	switch f := strings.ToLower(strings.TrimSpace(c.Backup.Frequency)); f {
	case "", "hourly", "daily", "weekly":
	default:
		return fmt.Errorf("backup.frequency: unknown value %q (use hourly, daily or weekly)", c.Backup.Frequency)
	}
	if c.Backup.Hour < 0 || c.Backup.Hour > 23 {
		return fmt.Errorf("backup.hour: %d out of range 0-23", c.Backup.Hour)
	}
	if c.Backup.Minute < 0 || c.Backup.Minute > 59 {
		return fmt.Errorf("backup.minute: %d out of range 0-59", c.Backup.Minute)
	}
	if c.Backup.Retention < 0 {
		return errors.New("backup.retention must be >= 0")
	}
	for _, raw := range []struct{ path, v string }{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.idle_timeout", c.Server.IdleTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"scheduler.default_timeout", c.Scheduler.DefaultTimeout},
		{"choices.cache_ttl", c.Choices.CacheTTL},
	} {
		if _, err := ParseDurationField(raw.path, raw.v); err != nil {
			return err
		}
	}
	return nil
}
