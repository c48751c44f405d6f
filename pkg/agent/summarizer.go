package agent

import (
	"context"
	"strings"
	"unicode"

	"github.com/papercomputeco/curlens/pkg/chatstore"
)

const (
	minSummaryWords   = 10
	minSummaryLetters = 50
)

// rejectPhrases mark replies that describe no real work.
var rejectPhrases = []string{
	"no actionable content",
	"no specific coding task",
	"no meaningful",
	"user initiated a chat",
	"user started a chat",
	"no specific task",
	"empty conversation",
}

// Summarizer produces session summaries through the agent.
type Summarizer struct {
	runner   Runner
	model    string
	maxWords int
}

func NewSummarizer(runner Runner, model string, maxWords int) *Summarizer {
	return &Summarizer{runner: runner, model: model, maxWords: maxWords}
}

// Summarize returns a summary of messages, updating prior when it is set.
// The reply is cut to the word budget.
func (s *Summarizer) Summarize(ctx context.Context, prior string, messages []chatstore.Message) (string, error) {
	out, err := s.runner.Run(ctx, s.model, SummaryPrompt(prior, messages, s.maxWords))
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}

	return TruncateWords(out, s.maxWords), nil
}

// TruncateWords keeps the first maxWords words of s, marking the cut with "...".
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if maxWords <= 0 || len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// Actionable reports whether a summary describes real work worth indexing.
func Actionable(summary string) bool {
	if len(strings.Fields(summary)) < minSummaryWords {
		return false
	}

	letters := 0
	for _, r := range summary {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minSummaryLetters {
		return false
	}

	lower := strings.ToLower(summary)
	for _, phrase := range rejectPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	return true
}
