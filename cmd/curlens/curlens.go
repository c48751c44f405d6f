// Package curlenscmder
package curlenscmder

import (
	"github.com/spf13/cobra"

	backfillcmder "github.com/papercomputeco/curlens/cmd/curlens/backfill"
	configcmder "github.com/papercomputeco/curlens/cmd/curlens/config"
	hookcmder "github.com/papercomputeco/curlens/cmd/curlens/hook"
	searchcmder "github.com/papercomputeco/curlens/cmd/curlens/search"
	servecmder "github.com/papercomputeco/curlens/cmd/curlens/serve"
	statuscmder "github.com/papercomputeco/curlens/cmd/curlens/status"
	watchcmder "github.com/papercomputeco/curlens/cmd/curlens/watch"
	versioncmder "github.com/papercomputeco/curlens/cmd/version"
)

const curlensLongDesc string = `curlens indexes your Cursor agent chats and finds them again.

Every session gets a short summary, kept current as the chat grows.
Describe what you worked on and curlens drops you back into that session.

Getting started:
  curlens hook install     Summarize sessions as you work
  curlens backfill         Index the sessions you already have
  curlens search <text>    Find a session and resume it

Run services using:
  curlens watch            Re-index on file changes or a schedule
  curlens serve            Serve the search API and MCP endpoint`

const curlensShortDesc string = "curlens - find and resume Cursor agent chats"

func NewCurlensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "curlens",
		Short:         curlensShortDesc,
		Long:          curlensLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .curlens/ config directory")

	// Add subcommands
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(backfillcmder.NewBackfillCmd())
	cmd.AddCommand(hookcmder.NewHookCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
