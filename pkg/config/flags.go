package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --sqlite on backfill, search, serve and status) cannot drift.
type Flag struct {
	// Name is the long flag name (e.g. "window-days").
	Name string

	// Shorthand is the one-letter short flag (e.g. "w"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "search.window_days").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagSQLite       = "sqlite"
	FlagCursorHome   = "cursor-home"
	FlagAgentCommand = "agent-command"
	FlagSummaryModel = "summary-model"
	FlagMaxWords     = "max-words"
	FlagSearchModel  = "search-model"
	FlagWindowDays   = "window-days"
	FlagTop          = "top"
	FlagWorkers      = "workers"
	FlagAPIListen    = "listen"
	FlagSchedule     = "schedule"
	FlagBrokers      = "brokers"
)

// Flags is the registry shared by every curlens command.
var Flags = FlagSet{
	FlagSQLite:       {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the catalog database (default: <dotdir>/curlens.db)"},
	FlagCursorHome:   {Name: "cursor-home", ViperKey: "cursor.home", Description: "Cursor data directory holding chats/ and projects/"},
	FlagAgentCommand: {Name: "agent-command", ViperKey: "agent.command", Description: "Command used to invoke the external agent"},
	FlagSummaryModel: {Name: "summary-model", ViperKey: "summarizer.model", Description: "Model used to summarize sessions"},
	FlagMaxWords:     {Name: "max-words", ViperKey: "summarizer.max_words", Description: "Maximum words per summary"},
	FlagSearchModel:  {Name: "search-model", ViperKey: "search.model", Description: "Model used for smart search"},
	FlagWindowDays:   {Name: "window-days", Shorthand: "w", ViperKey: "search.window_days", Description: "Only search sessions updated within this many days (0 for all)"},
	FlagTop:          {Name: "top", Shorthand: "n", ViperKey: "search.max_results", Description: "Number of results to show"},
	FlagWorkers:      {Name: "workers", ViperKey: "backfill.workers", Description: "Sessions summarized in parallel"},
	FlagAPIListen:    {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagSchedule:     {Name: "schedule", ViperKey: "watch.schedule", Description: "Cron expression for periodic re-scans"},
	FlagBrokers:      {Name: "brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers for summary events"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultValues().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultValues().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultValues() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
