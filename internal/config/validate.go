// internal/config/validate.go
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vmunix/arrq/internal/quality"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validDownloaderTypes = map[string]bool{
	"sabnzbd": true, "qbittorrent": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"queue.reconcile_interval", c.Queue.ReconcileInterval},
		{"queue.grace_period", c.Queue.GracePeriod},
		{"queue.client_timeout", c.Queue.ClientTimeout},
		{"queue.stall_timeout", c.Queue.StallTimeout},
		{"pending.retry_delay", c.Pending.RetryDelay},
		{"events.retention", c.Events.Retention},
	}
	for _, f := range durations {
		if f.d < 0 {
			errs = append(errs, fmt.Sprintf("%s: must not be negative, got %s", f.key, f.d))
		}
	}
	if c.Queue.PageSize < 0 {
		errs = append(errs, fmt.Sprintf("queue.page_size: must not be negative, got %d", c.Queue.PageSize))
	}

	for _, f := range []struct{ key, spec string }{
		{"pending.sweep_schedule", c.Pending.SweepSchedule},
		{"events.prune_schedule", c.Events.PruneSchedule},
	} {
		if f.spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(f.spec); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid schedule %q: %v", f.key, f.spec, err))
		}
	}

	for _, name := range c.Quality.Order {
		if _, ok := quality.FindByName(name); !ok {
			errs = append(errs, fmt.Sprintf("quality.order: unknown quality %q", name))
		}
	}
	for _, name := range c.Quality.Languages {
		if _, ok := quality.FindLanguage(name); !ok {
			errs = append(errs, fmt.Sprintf("quality.languages: unknown language %q", name))
		}
	}

	names := make([]string, 0, len(c.Downloaders))
	for name := range c.Downloaders {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		d := c.Downloaders[name]
		if d == nil {
			continue
		}
		if !validDownloaderTypes[d.Type] {
			errs = append(errs, fmt.Sprintf("downloaders.%s.type: must be one of sabnzbd, qbittorrent; got %q", name, d.Type))
		}
		if d.URL == "" {
			errs = append(errs, fmt.Sprintf("downloaders.%s.url: required", name))
		}
		if d.Type == "sabnzbd" && d.APIKey == "" {
			errs = append(errs, fmt.Sprintf("downloaders.%s.api_key: required for sabnzbd", name))
		}
	}

	return errs
}
