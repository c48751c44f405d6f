package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/curlens/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable curlens reads configuration from.
const EnvPrefix = "CURLENS"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// found via dotdir resolution, and binds environment variables
// with the CURLENS_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CURLENS_SEARCH_WINDOW_DAYS, CURLENS_LOG_DEBUG, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective configuration out of v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Summarizer: SummarizerConfig{
			Model:          v.GetString("summarizer.model"),
			MaxWords:       v.GetUint("summarizer.max_words"),
			TimeoutSeconds: v.GetUint("summarizer.timeout_seconds"),
		},
		Search: SearchConfig{
			Model:      v.GetString("search.model"),
			WindowDays: v.GetUint("search.window_days"),
			MaxResults: v.GetUint("search.max_results"),
		},
		Hooks:    HooksConfig{Enabled: v.GetBool("hooks.enabled")},
		Log:      LogConfig{Debug: v.GetBool("log.debug")},
		Storage:  StorageConfig{SQLitePath: v.GetString("storage.sqlite_path")},
		Cursor:   CursorConfig{Home: v.GetString("cursor.home")},
		Agent:    AgentConfig{Command: v.GetString("agent.command")},
		Backfill: BackfillConfig{Workers: v.GetUint("backfill.workers")},
		API:      APIConfig{Listen: v.GetString("api.listen")},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Watch: WatchConfig{Schedule: v.GetString("watch.schedule")},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, key := range orderedKeys {
		v.SetDefault(key, configKeys[key].get(d))
	}
}
