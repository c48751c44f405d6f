// Package statuscmder provides the status command for displaying the state
// of the curlens catalog.
package statuscmder

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/cliui"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/utils"
)

const statusLongDesc string = `Show the state of the curlens catalog.

Prints the catalog location, the number of indexed sessions, tracked
watermarks and known workspaces, and when the catalog last changed.

Examples:
  curlens status
  curlens status --sqlite ./curlens.db`

const statusShortDesc string = "Show catalog state"

type statusCommander struct {
	sqlitePath string
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)

	return cmd
}

func (c *statusCommander) run(cmd *cobra.Command) error {
	settings, err := app.LoadSettings(cmd, config.FlagSQLite)
	if err != nil {
		return err
	}

	path, err := settings.CatalogPath()
	if err != nil {
		return err
	}

	store, err := catalog.Open(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	render(cmd.OutOrStdout(), path, stats, time.Now())
	return nil
}

func render(w io.Writer, path string, stats catalog.Stats, now time.Time) {
	row := func(key, value string) {
		fmt.Fprintf(w, "  %s  %s\n", cliui.MutedStyle.Render(fmt.Sprintf("%-12s", key)), value)
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.TitleStyle.Render("curlens catalog"))
	row("Database", path)
	row("Sessions", fmt.Sprint(stats.Entries))
	row("Watermarks", fmt.Sprint(stats.Watermarks))
	row("Workspaces", fmt.Sprint(stats.Workspaces))
	row("Updated", utils.Ago(stats.LastUpdated, now))
	fmt.Fprintln(w)

	if stats.Entries == 0 {
		fmt.Fprintf(w, "  %s\n\n", cliui.WarnStyle.Render("Nothing indexed yet. Run `curlens backfill` to index existing sessions."))
	}
}
