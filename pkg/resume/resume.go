// Package resume maps a chosen search result back to the Cursor session it
// describes and builds the command that reopens it.
package resume

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/papercomputeco/curlens/pkg/search"
)

// ErrInvalidSelection is returned for a choice that does not name one of the
// listed results.
var ErrInvalidSelection = errors.New("invalid selection")

// Target is the session to resume.
type Target struct {
	WorkspacePath string `json:"workspace_path"`
	SessionID     string `json:"session_id"`
	Title         string `json:"title"`
}

// Select parses a 1-based choice such as "2" and returns the matching
// result's target.
func Select(results []search.Result, input string) (Target, error) {
	input = strings.TrimSpace(input)
	n, err := strconv.Atoi(input)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, input)
	}
	return SelectIndex(results, n)
}

// SelectIndex returns the target of the n-th result, counting from 1.
func SelectIndex(results []search.Result, n int) (Target, error) {
	if n < 1 || n > len(results) {
		return Target{}, fmt.Errorf("%w: choose 1-%d, got %d", ErrInvalidSelection, len(results), n)
	}

	e := results[n-1].Entry
	return Target{
		WorkspacePath: e.WorkspacePath,
		SessionID:     e.SessionID,
		Title:         e.Title,
	}, nil
}

// Launcher builds resume commands for the agent CLI.
type Launcher struct {
	argv []string
}

// NewLauncher parses the agent base command, e.g. "cursor agent".
func NewLauncher(agentCommand string) (*Launcher, error) {
	argv, err := shellwords.Parse(agentCommand)
	if err != nil {
		return nil, fmt.Errorf("parsing agent command %q: %w", agentCommand, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("agent command is empty")
	}
	return &Launcher{argv: argv}, nil
}

// Args returns the full argument vector resuming target.
func (l *Launcher) Args(target Target) []string {
	args := append([]string{}, l.argv...)
	return append(args, "--resume", target.SessionID)
}

// Command returns the command resuming target, running in its workspace.
// Standard streams are left for the caller to attach.
func (l *Launcher) Command(ctx context.Context, target Target) (*exec.Cmd, error) {
	info, err := os.Stat(target.WorkspacePath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("workspace %s no longer exists", target.WorkspacePath)
	}

	args := l.Args(target)
	// #nosec G204 -- the agent command comes from the user's own config.
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = target.WorkspacePath
	cmd.Env = os.Environ()
	return cmd, nil
}

// ShellLine renders the resume as a line a user can paste into a shell.
func (l *Launcher) ShellLine(target Target) string {
	quoted := make([]string, 0, len(l.argv)+2)
	for _, a := range l.Args(target) {
		quoted = append(quoted, quote(a))
	}
	return fmt.Sprintf("cd %s && %s", quote(target.WorkspacePath), strings.Join(quoted, " "))
}

func quote(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:@%+,", r)
}
