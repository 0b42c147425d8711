package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSchema = `
listen_addr?: string

admin?: {
	addr?:  string
	token?: string
}

heartbeat?: {
	interval?:           string
	ping_timeout?:       string
	inactivity_timeout?: string
}

store?: {
	path?: string
}

history?: {
	endpoint?: string
	database?: string
	log_file?: string
}

stats_interval?: string
`

func writeFiles(t *testing.T, yamlBody string) (configPath, schemaPath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "server.yaml")
	schemaPath = filepath.Join(dir, "server.cue")
	if err := os.WriteFile(configPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(schemaPath, []byte(testSchema), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return configPath, schemaPath
}

func TestLoadValid(t *testing.T) {
	configPath, schemaPath := writeFiles(t, `
listen_addr: ":9100"
admin:
  addr: ":9101"
  token: "hunter2"
heartbeat:
  interval: "2s"
  ping_timeout: "3s"
  inactivity_timeout: "30s"
store:
  path: "snapshots.db"
history:
  endpoint: "greptime:4001"
  database: "flights"
stats_interval: "1m"
`)
	cfg, err := Load(configPath, schemaPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9100" || cfg.Admin.Token != "hunter2" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Heartbeat.Interval.Std() != 2*time.Second {
		t.Errorf("heartbeat interval = %v", cfg.Heartbeat.Interval.Std())
	}
	if cfg.Heartbeat.InactivityTimeout.Std() != 30*time.Second {
		t.Errorf("inactivity timeout = %v", cfg.Heartbeat.InactivityTimeout.Std())
	}
	if cfg.History.Endpoint != "greptime:4001" || cfg.History.Database != "flights" {
		t.Errorf("history = %+v", cfg.History)
	}
}

func TestLoadDefaults(t *testing.T) {
	configPath, schemaPath := writeFiles(t, "admin:\n  token: \"x\"\n")
	cfg, err := Load(configPath, schemaPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8765" || cfg.Admin.Addr != ":8766" {
		t.Errorf("addr defaults: %+v", cfg)
	}
	if cfg.Heartbeat.Interval.Std() != 5*time.Second ||
		cfg.Heartbeat.PingTimeout.Std() != 5*time.Second ||
		cfg.Heartbeat.InactivityTimeout.Std() != 5*time.Second {
		t.Errorf("heartbeat defaults: %+v", cfg.Heartbeat)
	}
	if cfg.StatsInterval.Std() != 5*time.Minute {
		t.Errorf("stats interval default: %v", cfg.StatsInterval.Std())
	}
	if cfg.History.Database != "public" {
		t.Errorf("history database default: %q", cfg.History.Database)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	configPath, schemaPath := writeFiles(t, "listen_addr: \":9100\"\n")
	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("ADMIN_TOKEN", "from-env")
	t.Setenv("GREPTIMEDB_ENDPOINT", "db:4001")

	cfg, err := Load(configPath, schemaPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("listen addr = %q, want env override", cfg.ListenAddr)
	}
	if cfg.Admin.Token != "from-env" || cfg.History.Endpoint != "db:4001" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadBadDuration(t *testing.T) {
	configPath, schemaPath := writeFiles(t, "heartbeat:\n  interval: \"fast\"\n")
	if _, err := Load(configPath, schemaPath); err == nil {
		t.Fatalf("Load accepted invalid duration")
	}
}

func TestValidateWithCueRejectsWrongType(t *testing.T) {
	configPath, schemaPath := writeFiles(t, "listen_addr: 8765\n")
	if err := ValidateWithCue(configPath, schemaPath); err == nil {
		t.Fatalf("schema accepted integer listen_addr")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, schemaPath := writeFiles(t, "")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), schemaPath); err == nil {
		t.Fatalf("Load accepted missing config file")
	}
}
