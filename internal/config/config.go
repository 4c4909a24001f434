// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Database      DatabaseConfig      `toml:"database"`
	Queue         QueueConfig         `toml:"queue"`
	Pending       PendingConfig       `toml:"pending"`
	Events        EventsConfig        `toml:"events"`
	Quality       QualityConfig       `toml:"quality"`
	Downloaders   DownloadersConfig   `toml:"downloaders"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// QueueConfig tunes reconciliation against download clients and queue paging.
type QueueConfig struct {
	ReconcileInterval time.Duration `toml:"reconcile_interval"`
	GracePeriod       time.Duration `toml:"grace_period"`
	ClientTimeout     time.Duration `toml:"client_timeout"`
	StallTimeout      time.Duration `toml:"stall_timeout"`
	PageSize          int           `toml:"page_size"`
}

// PendingConfig controls when deferred releases are grabbed.
type PendingConfig struct {
	SweepSchedule string        `toml:"sweep_schedule"` // cron spec, e.g. "@every 1m"
	RetryDelay    time.Duration `toml:"retry_delay"`
}

// EventsConfig controls how long event history is kept.
type EventsConfig struct {
	Retention     time.Duration `toml:"retention"`
	PruneSchedule string        `toml:"prune_schedule"`
}

// QualityConfig lists qualities and languages from least to most preferred.
type QualityConfig struct {
	Order     []string `toml:"order"`
	Languages []string `toml:"languages"`
}

// DownloadersConfig maps a client name to its settings.
type DownloadersConfig map[string]*DownloaderConfig

type DownloaderConfig struct {
	Type             string        `toml:"type"` // sabnzbd or qbittorrent
	URL              string        `toml:"url"`
	APIKey           string        `toml:"api_key"`
	Username         string        `toml:"username"`
	Password         string        `toml:"password"`
	Category         string        `toml:"category"`
	ImportedCategory string        `toml:"imported_category"`
	Timeout          time.Duration `toml:"timeout"`
}

type NotificationsConfig struct {
	WebSocket      bool `toml:"websocket"`
	AllowAnyOrigin bool `toml:"allow_any_origin"`
}

// Load reads, substitutes and validates the configuration file.
// Unresolved environment variables and validation failures are reported
// together as a *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation reads the configuration file, leaving unresolved
// variables in place and skipping validation.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8484
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/arrq.db"
	}
	if c.Queue.ReconcileInterval == 0 {
		c.Queue.ReconcileInterval = 30 * time.Second
	}
	if c.Queue.GracePeriod == 0 {
		c.Queue.GracePeriod = 10 * time.Minute
	}
	if c.Queue.ClientTimeout == 0 {
		c.Queue.ClientTimeout = 15 * time.Second
	}
	if c.Queue.StallTimeout == 0 {
		c.Queue.StallTimeout = 2 * time.Hour
	}
	if c.Queue.PageSize == 0 {
		c.Queue.PageSize = 10
	}
	if c.Pending.SweepSchedule == "" {
		c.Pending.SweepSchedule = "@every 1m"
	}
	if c.Pending.RetryDelay == 0 {
		c.Pending.RetryDelay = 5 * time.Minute
	}
	if c.Events.Retention == 0 {
		c.Events.Retention = 30 * 24 * time.Hour
	}
	if c.Events.PruneSchedule == "" {
		c.Events.PruneSchedule = "@daily"
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}`)

// substituteEnvVars replaces variable references with their values and
// returns the names of the variables that could not be resolved. Unresolved
// references are left in place.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case "-":
			if value == "" {
				return arg
			}
			return value
		case "?":
			if value == "" {
				missing = append(missing, name+": "+arg)
				return match
			}
			return value
		}
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}
