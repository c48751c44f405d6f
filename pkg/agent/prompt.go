package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/curlens/pkg/chatstore"
)

const (
	promptBudget   = 6000
	overflowKeep   = 200
	overflowSuffix = "... [trimmed]"
)

type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// trimMessages keeps messages in order until their JSON size would exceed
// promptBudget. The message that overflows is kept cut down when it is long.
func trimMessages(messages []chatstore.Message) []promptMessage {
	out := make([]promptMessage, 0, len(messages))
	total := 0
	for _, m := range messages {
		pm := promptMessage{Role: string(m.Role), Content: m.Text}
		encoded, _ := json.Marshal(pm)
		if total+len(encoded) > promptBudget {
			if content := []rune(pm.Content); len(content) > overflowKeep {
				pm.Content = string(content[:overflowKeep]) + overflowSuffix
				out = append(out, pm)
			}
			break
		}
		out = append(out, pm)
		total += len(encoded)
	}
	return out
}

func messagesJSON(messages []chatstore.Message) string {
	data, _ := json.MarshalIndent(trimMessages(messages), "", "  ")
	return string(data)
}

// SummaryPrompt builds the prompt for a new summary, or for an updated one
// when prior is not empty.
func SummaryPrompt(prior string, messages []chatstore.Message, maxWords int) string {
	var b strings.Builder

	if prior != "" {
		fmt.Fprintf(&b, "Update this chat summary with new messages. Keep it under %d words.\n\n", maxWords)
		b.WriteString("CURRENT SUMMARY:\n")
		b.WriteString(prior)
		b.WriteString("\n\nNEW MESSAGES:\n")
		b.WriteString(messagesJSON(messages))
		b.WriteString("\n\nFold the new messages into the summary, keeping the task, the technologies and the outcome.\n")
		b.WriteString("Output ONLY the summary.")
		return b.String()
	}

	fmt.Fprintf(&b, "Summarize this coding chat in %d words or less.\n\n", maxWords)
	b.WriteString("Describe:\n")
	b.WriteString("- what the user was trying to get done\n")
	b.WriteString("- the technologies, frameworks and files involved\n")
	b.WriteString("- what was changed or decided\n\n")
	b.WriteString("Leave out model names, environment setup and filler such as \"the user opened a chat\".\n")
	b.WriteString("When there is no real coding task, answer exactly: No actionable content\n\n")
	b.WriteString("Output ONLY the summary.\n\n")
	b.WriteString("MESSAGES:\n")
	b.WriteString(messagesJSON(messages))

	return b.String()
}

// Candidate is one session offered to the ranker.
type Candidate struct {
	ID        string `json:"id"`
	Title     string `json:"name"`
	Summary   string `json:"summary"`
	Workspace string `json:"directory"`
}

// RankPrompt builds the prompt asking for the candidates relevant to query.
func RankPrompt(query string, candidates []Candidate, maxResults int) string {
	data, _ := json.MarshalIndent(candidates, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Rank these chats by relevance to: %q\n\n", query)
	b.Write(data)
	fmt.Fprintf(&b, "\n\nReply with a JSON array holding only the relevant chats, best first, at most %d:\n", maxResults)
	b.WriteString(`[{"id": "...", "reason": "..."}]`)
	b.WriteString("\n\nWhen nothing is relevant reply with: []")

	return b.String()
}
