// Package watchcmder provides `curlens watch`, which keeps the catalog
// current without Cursor hooks.
package watchcmder

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/backfill"
	"github.com/papercomputeco/curlens/pkg/config"
)

const watchLongDesc string = `Keep the catalog current by watching Cursor's chat directory.

Every session whose store.db changes is summarized once writes settle.
With --schedule, a full rescan also runs on a cron schedule, which catches
anything the file watcher missed. A rescan runs once at startup unless
--no-catch-up is given.

Examples:
  curlens watch
  curlens watch --schedule "*/30 * * * *"
  curlens watch --no-catch-up`

const watchShortDesc string = "Re-index sessions as they change"

// watchLogFile receives a JSON copy of the log in debug mode.
const watchLogFile = "watch.log"

type watchCommander struct {
	sqlitePath   string
	cursorHome   string
	agentCommand string
	schedule     string
	workers      uint
	noCatchUp    bool
}

var flags = []string{
	config.FlagSQLite,
	config.FlagCursorHome,
	config.FlagAgentCommand,
	config.FlagSchedule,
	config.FlagWorkers,
}

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagCursorHome, &cmder.cursorHome)
	config.AddStringFlag(cmd, config.Flags, config.FlagAgentCommand, &cmder.agentCommand)
	config.AddStringFlag(cmd, config.Flags, config.FlagSchedule, &cmder.schedule)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	cmd.Flags().BoolVar(&cmder.noCatchUp, "no-catch-up", false, "Skip the rescan at startup")

	return cmd
}

func (c *watchCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := app.LoadSettings(cmd, flags...)
	if err != nil {
		return err
	}
	logger, closeLog := settings.NewServiceLogger(watchLogFile)
	defer closeLog()

	a, err := app.Open(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing runtime", "error", err)
		}
	}()

	cursorHome, err := settings.Config.CursorHome()
	if err != nil {
		return err
	}

	p := a.Pipeline()
	rescan := func(ctx context.Context) error {
		b := backfill.NewBackfiller(a.Sessions, p, a.Catalog, backfill.Options{
			Workers: int(settings.Config.Backfill.Workers),
		}, logger)
		result, err := b.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("rescan complete",
			"summarized", result.Summarized,
			"unchanged", result.Unchanged,
			"skipped", result.SkippedCount(),
			"failed", result.FailedCount(),
		)
		return a.SaveMappings(ctx)
	}

	w, err := NewWatcher(WatcherConfig{
		ChatsDir:  filepath.Join(cursorHome, "chats"),
		Sessions:  a.Sessions,
		Processor: p,
		Rescan:    rescan,
		Schedule:  settings.Config.Watch.Schedule,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if !c.noCatchUp {
		if err := rescan(ctx); err != nil {
			logger.Error("catch-up rescan failed", "error", err)
		}
	}

	return w.Run(ctx)
}
