// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML fields written as "5s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// HeartbeatConfig tunes the per-session liveness supervision.
type HeartbeatConfig struct {
	Interval          Duration `yaml:"interval"`
	PingTimeout       Duration `yaml:"ping_timeout"`
	InactivityTimeout Duration `yaml:"inactivity_timeout"`
}

// AdminConfig is the monitoring endpoint listener and its shared secret.
type AdminConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

// StoreConfig selects where telemetry snapshots are persisted. An empty
// path keeps snapshots in memory.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig routes flight history rows. Endpoint selects a GreptimeDB
// sink, LogFile an append-only JSONL file; both may be active at once.
type HistoryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	LogFile  string `yaml:"log_file"`
}

// ServerConfig is the root configuration.
type ServerConfig struct {
	ListenAddr    string          `yaml:"listen_addr"`
	Admin         AdminConfig     `yaml:"admin"`
	Heartbeat     HeartbeatConfig `yaml:"heartbeat"`
	Store         StoreConfig     `yaml:"store"`
	History       HistoryConfig   `yaml:"history"`
	StatsInterval Duration        `yaml:"stats_interval"`
}

// Load reads YAML config and validates it against a CUE schema.
func Load(configPath, cueSchemaPath string) (*ServerConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8765"
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8766"
	}
	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = Duration(5 * time.Second)
	}
	if c.Heartbeat.PingTimeout == 0 {
		c.Heartbeat.PingTimeout = Duration(5 * time.Second)
	}
	if c.Heartbeat.InactivityTimeout == 0 {
		c.Heartbeat.InactivityTimeout = Duration(5 * time.Second)
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = Duration(5 * time.Minute)
	}
	if c.History.Database == "" {
		c.History.Database = "public"
	}
}

// applyEnv lets deployment environments override file settings.
func (c *ServerConfig) applyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("ADMIN_ADDR"); v != "" {
		c.Admin.Addr = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.History.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.History.Database = v
	}
}
