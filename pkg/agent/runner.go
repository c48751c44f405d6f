// Package agent invokes the external Cursor agent to summarize sessions and
// to rank search candidates.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// SkipHooksEnv is set on every agent invocation so the hook handler can
// ignore the events caused by curlens' own calls.
const SkipHooksEnv = "CURLENS_SKIP_HOOKS"

var (
	// ErrTimeout is returned when the agent does not answer in time.
	ErrTimeout = errors.New("agent timed out")

	// ErrEmptyResponse is returned when the agent answers with nothing.
	ErrEmptyResponse = errors.New("agent returned an empty response")
)

// Runner sends a prompt to a model and returns the reply.
type Runner interface {
	Run(ctx context.Context, model, prompt string) (string, error)
}

// CommandRunner runs the agent as a child process:
// <command> -p --model <model> <prompt>.
type CommandRunner struct {
	argv    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandRunner parses command with shell word splitting.
func NewCommandRunner(command string, timeout time.Duration, logger *slog.Logger) (*CommandRunner, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parsing agent command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("agent command is empty")
	}

	return &CommandRunner{argv: argv, timeout: timeout, logger: logger}, nil
}

func (r *CommandRunner) Run(ctx context.Context, model, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.argv[1:]...), "-p", "--model", model, prompt)
	cmd := exec.CommandContext(ctx, r.argv[0], args...)
	cmd.Env = append(os.Environ(), SkipHooksEnv+"=1")
	// Bound the wait for output pipes held open by the agent's children.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("agent call finished",
		"model", model,
		"prompt_chars", len(prompt),
		"duration", time.Since(start),
		"error", err,
	)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("running agent: %w: %s", err, msg)
		}
		return "", fmt.Errorf("running agent: %w", err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", ErrEmptyResponse
	}

	return out, nil
}
