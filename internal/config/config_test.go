package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  addr: "127.0.0.1:9000"
  read_timeout: "20s"
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
storage:
  path: "./data.db"
scheduler:
  enabled: true
  workers: 3
backup:
  enabled: true
  frequency: daily
  hour: 3
  minute: 30
  retention: 7
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Workers != 3 {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Backup.Frequency != "daily" || cfg.Backup.Retention != 7 {
		t.Fatalf("backup = %+v", cfg.Backup)
	}
	if m.Get() != cfg {
		t.Fatal("Get did not return committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "server": {"addr": "127.0.0.1:9001"},
  "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}},
  "storage": {"path": "./data.db"},
  "scheduler": {"enabled": false},
  "backup": {"enabled": false}
}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9001" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
storage:
  path: "./data.db"
serverr:
  addr: "oops"
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Storage: StorageConfig{Path: "./data.db"}}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c := base()
	c.Storage.Path = "  "
	if err := c.Validate(); err == nil {
		t.Fatal("missing storage path accepted")
	}

	c = base()
	c.Backup.Frequency = "fortnightly"
	if err := c.Validate(); err == nil {
		t.Fatal("bad backup frequency accepted")
	}

	c = base()
	c.Backup.Hour = 24
	if err := c.Validate(); err == nil {
		t.Fatal("hour 24 accepted")
	}

	c = base()
	c.Server.ReadTimeout = "not-a-duration"
	if err := c.Validate(); err == nil {
		t.Fatal("bad duration accepted")
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", "90s"); err != nil || d != 90*time.Second {
		t.Fatalf("ParseDurationField = %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty = %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 10*time.Second); err != nil || d != 10*time.Second {
		t.Fatalf("default = %v, %v", d, err)
	}
}
