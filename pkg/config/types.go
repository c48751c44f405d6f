package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent curlens configuration stored as config.toml
// in the .curlens/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Summarizer SummarizerConfig `toml:"summarizer"`
	Search     SearchConfig     `toml:"search"`
	Hooks      HooksConfig      `toml:"hooks"`
	Log        LogConfig        `toml:"log"`
	Storage    StorageConfig    `toml:"storage"`
	Cursor     CursorConfig     `toml:"cursor"`
	Agent      AgentConfig      `toml:"agent"`
	Backfill   BackfillConfig   `toml:"backfill"`
	API        APIConfig        `toml:"api"`
	Events     EventsConfig     `toml:"events"`
	Watch      WatchConfig      `toml:"watch"`
}

// SummarizerConfig controls the external summarizer invocation.
type SummarizerConfig struct {
	Model          string `toml:"model,omitempty"`
	MaxWords       uint   `toml:"max_words,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// SearchConfig controls ranking and the recency window.
type SearchConfig struct {
	Model      string `toml:"model,omitempty"`
	WindowDays uint   `toml:"window_days,omitempty"`
	MaxResults uint   `toml:"max_results,omitempty"`
}

// HooksConfig toggles processing of hook events.
type HooksConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
}

// StorageConfig holds the catalog database location. An empty SQLitePath
// means <dotdir>/curlens.db.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// CursorConfig points at the Cursor data directory holding chats/ and projects/.
type CursorConfig struct {
	Home string `toml:"home,omitempty"`
}

// AgentConfig holds the base command used to reach the external agent.
// It is split into words the way a shell would.
type AgentConfig struct {
	Command string `toml:"command,omitempty"`
}

type BackfillConfig struct {
	Workers uint `toml:"workers,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig configures the summary event stream. An empty Provider
// disables publishing.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// WatchConfig holds the optional cron schedule for periodic re-scans.
type WatchConfig struct {
	Schedule string `toml:"schedule,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"summarizer.model":           stringKey(func(c *Config) *string { return &c.Summarizer.Model }),
	"summarizer.max_words":       uintKey("summarizer.max_words", func(c *Config) *uint { return &c.Summarizer.MaxWords }),
	"summarizer.timeout_seconds": uintKey("summarizer.timeout_seconds", func(c *Config) *uint { return &c.Summarizer.TimeoutSeconds }),
	"search.model":               stringKey(func(c *Config) *string { return &c.Search.Model }),
	"search.window_days":         uintKey("search.window_days", func(c *Config) *uint { return &c.Search.WindowDays }),
	"search.max_results":         uintKey("search.max_results", func(c *Config) *uint { return &c.Search.MaxResults }),
	"hooks.enabled":              boolKey("hooks.enabled", func(c *Config) *bool { return &c.Hooks.Enabled }),
	"log.debug":                  boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
	"storage.sqlite_path":        stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"cursor.home":                stringKey(func(c *Config) *string { return &c.Cursor.Home }),
	"agent.command":              stringKey(func(c *Config) *string { return &c.Agent.Command }),
	"backfill.workers":           uintKey("backfill.workers", func(c *Config) *uint { return &c.Backfill.Workers }),
	"api.listen":                 stringKey(func(c *Config) *string { return &c.API.Listen }),
	"events.provider":            stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":             stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":               stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"watch.schedule":             stringKey(func(c *Config) *string { return &c.Watch.Schedule }),
}

// orderedKeys is the stable listing order, matching the TOML section layout.
var orderedKeys = []string{
	"summarizer.model",
	"summarizer.max_words",
	"summarizer.timeout_seconds",
	"search.model",
	"search.window_days",
	"search.max_results",
	"hooks.enabled",
	"log.debug",
	"storage.sqlite_path",
	"cursor.home",
	"agent.command",
	"backfill.workers",
	"api.listen",
	"events.provider",
	"events.brokers",
	"events.topic",
	"watch.schedule",
}
