package hookcmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/titanous/json5"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/cliui"
	"github.com/papercomputeco/curlens/pkg/config"
)

const installLongDesc string = `Register curlens in Cursor's hooks.json.

Adds "curlens hook" to the afterShellExecution, afterMCPExecution and
afterFileEdit events in <cursor.home>/hooks.json. Existing hooks are kept
and running the command again changes nothing. Comments in an existing
hooks.json are accepted but not preserved.

Examples:
  curlens hook install
  curlens hook install --command "/usr/local/bin/curlens hook"`

const installShortDesc string = "Register curlens in Cursor's hooks.json"

const hooksFile = "hooks.json"

// hookEvents are the Cursor CLI events that fire during agent sessions.
var hookEvents = []string{"afterShellExecution", "afterMCPExecution", "afterFileEdit"}

type installCommander struct {
	cursorHome string
	command    string
}

func newInstallCmd() *cobra.Command {
	cmder := &installCommander{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: installShortDesc,
		Long:  installLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCursorHome, &cmder.cursorHome)
	cmd.Flags().StringVar(&cmder.command, "command", "", "Hook command to register (default: this executable followed by \"hook\")")

	return cmd
}

func (c *installCommander) run(cmd *cobra.Command) error {
	settings, err := app.LoadSettings(cmd, config.FlagCursorHome)
	if err != nil {
		return err
	}

	home, err := settings.Config.CursorHome()
	if err != nil {
		return err
	}

	command := c.command
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locating curlens executable: %w", err)
		}
		command = exe + " hook"
	}

	path := filepath.Join(home, hooksFile)
	added, err := install(path, command)
	if err != nil {
		return err
	}

	report(cmd.OutOrStdout(), path, added)
	return nil
}

func report(w io.Writer, path string, added []string) {
	if len(added) == 0 {
		fmt.Fprintf(w, "%s curlens hooks already installed in %s\n", cliui.SuccessMark, path)
		return
	}
	fmt.Fprintf(w, "%s Installed curlens hooks in %s\n", cliui.SuccessMark, path)
	for _, event := range added {
		fmt.Fprintf(w, "  %s %s\n", cliui.MutedStyle.Render("+"), event)
	}
}

// install merges command into every hook event of the hooks file at path
// and returns the events it was added to.
func install(path, command string) ([]string, error) {
	doc := map[string]any{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := json5.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	if _, ok := doc["version"]; !ok {
		doc["version"] = 1
	}

	hooks, ok := doc["hooks"].(map[string]any)
	if !ok {
		if doc["hooks"] != nil {
			return nil, fmt.Errorf("%s: \"hooks\" is not an object", path)
		}
		hooks = map[string]any{}
	}

	var added []string
	for _, event := range hookEvents {
		entries, ok := hooks[event].([]any)
		if !ok && hooks[event] != nil {
			return nil, fmt.Errorf("%s: hooks.%s is not a list", path, event)
		}
		if registered(entries, command) {
			continue
		}
		hooks[event] = append(entries, map[string]any{"command": command})
		added = append(added, event)
	}
	doc["hooks"] = hooks

	if len(added) == 0 {
		return nil, nil
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding hooks: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o600); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	return added, nil
}

func registered(entries []any, command string) bool {
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok && m["command"] == command {
			return true
		}
	}
	return false
}
