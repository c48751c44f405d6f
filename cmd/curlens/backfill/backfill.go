// Package backfillcmder provides the `curlens backfill` CLI command.
package backfillcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/backfill"
	"github.com/papercomputeco/curlens/pkg/cliui"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/utils"
)

const backfillLongDesc string = `Summarize every Cursor CLI session found on disk.

Scans the Cursor chats directory, resolves each session's workspace and
summarizes whatever is new since the last run. Sessions that are already
up to date cost nothing; a failing session never stops the run.

Catalog entries whose session no longer exists on disk are pruned.

Examples:
  curlens backfill
  curlens backfill --dry-run
  curlens backfill --limit 20 --workers 4
  curlens backfill --cursor-home ~/.cursor --sqlite ./curlens.db`

const backfillShortDesc string = "Summarize existing Cursor sessions"

type backfillCommander struct {
	sqlitePath   string
	cursorHome   string
	agentCommand string
	summaryModel string
	workers      uint
	limit        int
	dryRun       bool
	verbose      bool
}

var flags = []string{
	config.FlagSQLite,
	config.FlagCursorHome,
	config.FlagAgentCommand,
	config.FlagSummaryModel,
	config.FlagWorkers,
}

// NewBackfillCmd creates the backfill cobra command.
func NewBackfillCmd() *cobra.Command {
	cmder := &backfillCommander{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: backfillShortDesc,
		Long:  backfillLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagCursorHome, &cmder.cursorHome)
	config.AddStringFlag(cmd, config.Flags, config.FlagAgentCommand, &cmder.agentCommand)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummaryModel, &cmder.summaryModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Summarize at most this many sessions (0 for no limit)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Show what would be summarized without calling the agent")
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Show per-session errors")

	return cmd
}

func (c *backfillCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := app.LoadSettings(cmd, flags...)
	if err != nil {
		return err
	}
	logger := settings.NewLogger()

	a, err := app.Open(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing runtime", "error", err)
		}
	}()

	return runBackfill(ctx, cmd.OutOrStdout(), a, backfill.Options{
		DryRun:  c.dryRun,
		Limit:   c.limit,
		Workers: int(settings.Config.Backfill.Workers),
	}, c.verbose, logger)
}

func runBackfill(ctx context.Context, w io.Writer, a *app.App, opts backfill.Options, verbose bool, logger *slog.Logger) error {
	b := backfill.NewBackfiller(a.Sessions, a.Pipeline(), a.Catalog, opts, logger)

	msg := "Summarizing sessions"
	if opts.DryRun {
		msg = "Inspecting sessions"
	}

	var result *backfill.Result
	err := cliui.Step(w, msg, func() error {
		var err error
		result, err = b.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	if opts.DryRun {
		renderPlan(w, result)
	}
	fmt.Fprintln(w, result.Summary())

	if verbose {
		for _, se := range result.Errors {
			fmt.Fprintf(w, "  %s %s %s\n", cliui.FailMark, utils.ShortID(se.SessionID), cliui.MutedStyle.Render(se.Err.Error()))
		}
	}

	return nil
}

func renderPlan(w io.Writer, result *backfill.Result) {
	for _, p := range result.Planned {
		kind := "new"
		if p.Continuation {
			kind = "update"
		}
		fmt.Fprintf(w, "  %s %s %s %s\n",
			cliui.AccentStyle.Render(utils.ShortID(p.Session.ID)),
			utils.Truncate(p.Title, 48),
			cliui.MutedStyle.Render(p.WorkspacePath),
			cliui.StepStyle.Render(fmt.Sprintf("(%s, %d new messages)", kind, p.NewMessages)),
		)
	}
	if len(result.Planned) > 0 {
		fmt.Fprintln(w)
	}
}
