package chatstore

import (
	"strings"
	"time"
)

// Origin tells which client produced a session.
type Origin string

const (
	// OriginCLI is an interactive Cursor CLI chat.
	OriginCLI Origin = "cli"

	// OriginAgentPrompt is a headless "cursor agent -p" run, including
	// curlens' own summarizer and ranker calls.
	OriginAgentPrompt Origin = "agent-prompt"
)

// headlessNamingCutoff is when Cursor started naming headless runs
// "New Agent". Earlier interactive chats carry that name too.
var headlessNamingCutoff = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

const headlessName = "New Agent"

// promptMarkers appear in every prompt curlens sends to the agent.
var promptMarkers = []string{
	"summarize this coding chat in",
	"update this chat summary with new messages",
	"rank these chats by relevance",
	"output only the summary",
	"no actionable content",
}

// DetectOrigin classifies a session from its header and messages.
func DetectOrigin(meta *Meta, messages []Message) Origin {
	if meta != nil && meta.Name == headlessName && meta.CreatedAt >= headlessNamingCutoff {
		return OriginAgentPrompt
	}

	for _, m := range messages {
		if IsAgentPrompt(m.Text) {
			return OriginAgentPrompt
		}
	}

	return OriginCLI
}

// IsAgentPrompt reports whether text carries one of curlens' prompt markers.
func IsAgentPrompt(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range promptMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
