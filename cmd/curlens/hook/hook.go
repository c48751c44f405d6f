// Package hookcmder provides `curlens hook`, the handler Cursor runs after
// agent activity, and `curlens hook install`.
package hookcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/agent"
	"github.com/papercomputeco/curlens/pkg/chatstore"
	"github.com/papercomputeco/curlens/pkg/logger"
	"github.com/papercomputeco/curlens/pkg/pipeline"
)

const hookLongDesc string = `Handle a Cursor hook event.

Cursor runs this command after shell commands, MCP calls and file edits,
with the event as JSON on stdin. The session named by conversation_id is
brought up to date in the catalog. The command always answers
{"continue": true} and exits 0 so it can never block the agent.

Set hooks.enabled to false to turn processing off. With log.debug on,
every event is logged to hook.log in the .curlens/ directory.

Install the hooks with:
  curlens hook install`

const hookShortDesc string = "Handle a Cursor hook event (reads JSON on stdin)"

const hookLogFile = "hook.log"

// Payload is the JSON Cursor writes to the hook's stdin.
type Payload struct {
	HookEventName  string   `json:"hook_event_name"`
	ConversationID string   `json:"conversation_id"`
	WorkspaceRoots []string `json:"workspace_roots"`
}

// Response is the JSON answer Cursor expects on stdout.
type Response struct {
	Continue bool `json:"continue"`
}

func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: hookShortDesc,
		Long:  hookLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			handle(ctx, cmd, cmd.InOrStdin())
			return respond(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newInstallCmd())

	return cmd
}

func respond(w io.Writer) error {
	return json.NewEncoder(w).Encode(Response{Continue: true})
}

// handle processes one event. Every problem is logged and swallowed.
func handle(ctx context.Context, cmd *cobra.Command, in io.Reader) {
	if os.Getenv(agent.SkipHooksEnv) == "1" {
		return
	}

	settings, err := app.LoadSettings(cmd)
	if err != nil {
		return
	}
	if !settings.Config.Hooks.Enabled {
		return
	}

	log, closeLog := hookLogger(settings)
	defer closeLog()

	payload, err := readPayload(in)
	if err != nil {
		log.Warn("unreadable hook payload", "error", err)
		return
	}
	if payload == nil || payload.ConversationID == "" {
		log.Debug("no conversation in hook payload")
		return
	}

	log = log.With("event", payload.HookEventName, "session", payload.ConversationID)
	log.Debug("hook event", "workspace_roots", payload.WorkspaceRoots)

	a, err := app.Open(ctx, settings, log)
	if err != nil {
		log.Error("opening runtime", "error", err)
		return
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing runtime", "error", err)
		}
	}()

	if err := processEvent(ctx, a, payload, log); err != nil {
		log.Error("hook processing failed", "error", err)
	}
}

// processEvent registers the payload's workspace roots and brings the
// conversation's catalog entry up to date.
func processEvent(ctx context.Context, a *app.App, payload *Payload, log *slog.Logger) error {
	for _, root := range payload.WorkspaceRoots {
		if root != "" && filepath.IsAbs(root) {
			a.Resolver.Observe(root)
		}
	}

	session, err := a.Sessions.Find(ctx, payload.ConversationID)
	if errors.Is(err, chatstore.ErrSessionNotFound) {
		// IDE chats have no CLI store.db.
		log.Debug("no CLI session for conversation")
		return nil
	}
	if err != nil {
		return err
	}

	result, err := a.Pipeline().Process(ctx, session)
	var skipped *pipeline.SkipError
	switch {
	case errors.As(err, &skipped):
		log.Debug("session skipped", "reason", skipped.Reason)
		return nil
	case err != nil:
		return err
	}

	log.Debug("session processed", "status", result.Status, "new_messages", result.NewMessages)
	return nil
}

func readPayload(in io.Reader) (*Payload, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return &p, nil
}

// hookLogger writes JSON lines to <dotdir>/hook.log in debug mode and
// discards everything otherwise. Hook stdout belongs to Cursor, so nothing
// goes to the console.
func hookLogger(settings *app.Settings) (*slog.Logger, func() error) {
	log, closeLog, err := settings.FileLogger(hookLogFile)
	if err != nil {
		return logger.Nop(), func() error { return nil }
	}
	return log, closeLog
}
