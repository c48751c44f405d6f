// Package configcmder provides the config command for managing persistent
// curlens configuration stored in the .curlens/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent curlens configuration.

Configuration is stored as config.toml in the .curlens/ directory and provides
default values for command flags. CLI flags and CURLENS_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  summarizer.model, summarizer.max_words, summarizer.timeout_seconds,
  search.model, search.window_days, search.max_results,
  hooks.enabled, log.debug, storage.sqlite_path, cursor.home,
  agent.command, backfill.workers, api.listen,
  events.provider, events.brokers, events.topic, watch.schedule

Use subcommands to get, set, or list configuration values:
  curlens config set <key> <value>    Set a configuration value
  curlens config get <key>            Get a configuration value
  curlens config list                 List all configuration values

Examples:
  curlens config set search.window_days 30
  curlens config set hooks.enabled false
  curlens config get summarizer.model
  curlens config list`

const configShortDesc string = "Manage persistent curlens configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func configDir(cmd *cobra.Command) string {
	if f := cmd.Flag("config-dir"); f != nil {
		return f.Value.String()
	}
	return ""
}
