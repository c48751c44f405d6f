// Package searchcmder provides the `curlens search` command: find a session
// from a description and resume it.
package searchcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/cliui"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/resume"
	"github.com/papercomputeco/curlens/pkg/search"
)

const searchLongDesc string = `Find a Cursor session by describing it, then resume it.

Sessions updated within the recency window are searched first; when none
of them match, older sessions are searched too. Keyword ranking works
offline. With --smart the agent ranks the candidates and keyword ranking
takes over if it fails or times out.

On a terminal, pick a result with the arrow keys (or its number) and
press enter. Otherwise type the result number at the prompt.

Examples:
  curlens search flink job tuning
  curlens search --smart "the session where I fixed the flaky login test"
  curlens search kafka consumer -w 0 -n 5
  curlens search dark mode --select 1 --print`

const searchShortDesc string = "Find and resume a session"

type searchCommander struct {
	sqlitePath   string
	agentCommand string
	searchModel  string
	windowDays   uint
	topK         uint
	smart        bool
	selectN      int
	print        bool
	jsonOutput   bool
}

var flags = []string{
	config.FlagSQLite,
	config.FlagAgentCommand,
	config.FlagSearchModel,
	config.FlagWindowDays,
	config.FlagTop,
}

var errCancelled = errors.New("no session selected")

// NewSearchCmd creates the search cobra command.
func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <description...>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagAgentCommand, &cmder.agentCommand)
	config.AddStringFlag(cmd, config.Flags, config.FlagSearchModel, &cmder.searchModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagWindowDays, &cmder.windowDays)
	config.AddUintFlag(cmd, config.Flags, config.FlagTop, &cmder.topK)
	cmd.Flags().BoolVar(&cmder.smart, "smart", false, "Let the agent rank the candidates")
	cmd.Flags().IntVar(&cmder.selectN, "select", 0, "Resume the N-th result without asking")
	cmd.Flags().BoolVar(&cmder.print, "print", false, "Print the resume command instead of running it")
	cmd.Flags().BoolVar(&cmder.jsonOutput, "json", false, "Print results as JSON and exit")

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command, text string) error {
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
	defer a.Close()

	launcher, err := resume.NewLauncher(settings.Config.Agent.Command)
	if err != nil {
		return err
	}

	mode := search.ModeKeyword
	if c.smart {
		mode = search.ModeSmart
	}

	query := search.Query{
		Text:       text,
		WindowDays: int(settings.Config.Search.WindowDays),
		TopK:       int(settings.Config.Search.MaxResults),
		Ranker:     search.NewRanker(mode, a.AgentRanker(), logger),
	}

	s := &searcher{
		engine:   a.Engine(),
		launcher: launcher,
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		width:    app.Width(),
		now:      time.Now,
		pick:     runPicker,
		exec:     execTarget,
	}
	if !app.IsInteractive() {
		s.pick = nil
	}

	return s.run(ctx, query, options{selectN: c.selectN, print: c.print, json: c.jsonOutput})
}

type options struct {
	selectN int
	print   bool
	json    bool
}

// searcher runs one search and hands the chosen session to the launcher.
type searcher struct {
	engine   *search.Engine
	launcher *resume.Launcher
	in       io.Reader
	out      io.Writer
	width    int
	now      func() time.Time

	// pick runs the interactive picker; nil falls back to a line prompt.
	pick func(ctx context.Context, out *search.Output, width int) (int, error)

	exec func(ctx context.Context, launcher *resume.Launcher, target resume.Target) error
}

func (s *searcher) run(ctx context.Context, q search.Query, opts options) error {
	out, err := s.engine.Search(ctx, q)
	switch {
	case errors.Is(err, search.ErrNoSessionsIndexed):
		return fmt.Errorf("%w: run `curlens backfill` first", err)
	case errors.Is(err, search.ErrNoMatches):
		if opts.json {
			return writeJSON(s.out, &search.Output{Query: q.Text, Results: []search.Result{}})
		}
		fmt.Fprintf(s.out, "%s No sessions matched %q.\n", cliui.FailMark, q.Text)
		return nil
	case err != nil:
		return err
	}

	if opts.json {
		return writeJSON(s.out, out)
	}

	target, err := s.choose(ctx, out, opts.selectN)
	if errors.Is(err, errCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.print {
		fmt.Fprintln(s.out, s.launcher.ShellLine(target))
		return nil
	}

	fmt.Fprintf(s.out, "%s Resuming %s in %s\n",
		cliui.SuccessMark,
		cliui.TitleStyle.Render(target.Title),
		cliui.MutedStyle.Render(target.WorkspacePath),
	)
	s.recap(out, target)
	return s.exec(ctx, s.launcher, target)
}

// recap prints the chosen session's full summary as rendered markdown.
func (s *searcher) recap(out *search.Output, target resume.Target) {
	for _, r := range out.Results {
		if r.Entry.SessionID != target.SessionID || r.Entry.Summary == "" {
			continue
		}
		rendered, err := cliui.RenderMarkdown(r.Entry.Summary, s.width)
		if err != nil {
			rendered = r.Entry.Summary + "\n"
		}
		fmt.Fprint(s.out, rendered)
		return
	}
}

func (s *searcher) choose(ctx context.Context, out *search.Output, selectN int) (resume.Target, error) {
	if selectN != 0 {
		return resume.SelectIndex(out.Results, selectN)
	}

	if s.pick != nil {
		idx, err := s.pick(ctx, out, s.width)
		if err != nil {
			return resume.Target{}, err
		}
		if idx < 0 {
			return resume.Target{}, errCancelled
		}
		return resume.SelectIndex(out.Results, idx+1)
	}

	fmt.Fprint(s.out, cliui.RenderResults(out, s.now(), s.width))
	return prompt(s.in, s.out, out.Results)
}

func execTarget(ctx context.Context, launcher *resume.Launcher, target resume.Target) error {
	cmd, err := launcher.Command(ctx, target)
	if err != nil {
		return err
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func writeJSON(w io.Writer, out *search.Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
