package testutils

import (
	"context"
	"sync"
)

// MockRunner is a test agent runner that records prompts and replies with
// canned output.
type MockRunner struct {
	mu sync.Mutex

	// Prompts accumulates every prompt passed to Run.
	Prompts []string

	// Models accumulates the model of every call.
	Models []string

	// Reply is returned by Run when Replies is exhausted.
	Reply string

	// Replies are returned in order, one per call, before falling back to Reply.
	Replies []string

	// Err, when set, is returned by every call.
	Err error

	// Block makes Run wait for the context to end and return its error.
	Block bool
}

func NewMockRunner(reply string) *MockRunner {
	return &MockRunner{Reply: reply}
}

func (m *MockRunner) Run(ctx context.Context, model, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.Models = append(m.Models, model)
	reply := m.Reply
	if len(m.Replies) > 0 {
		reply = m.Replies[0]
		m.Replies = m.Replies[1:]
	}
	err := m.Err
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Calls returns how many times Run was invoked.
func (m *MockRunner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// LastPrompt returns the most recent prompt, or "".
func (m *MockRunner) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
