package chatstore

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	minMessageChars   = 10
	maxMessageChars   = 2000
	metadataMaxChars  = 500
	meaningfulChars   = 100
	meaningfulLetters = 50
)

var (
	userQueryRe = regexp.MustCompile(`(?s)<user_query>\s*(.*?)\s*</user_query>`)

	// metadataTags open user messages that carry only injected context.
	metadataTags = []string{"<user_info>", "<rules>", "<system_reminder>", "<always_applied"}

	// metadataIndicators mark short model preambles.
	metadataIndicators = []string{
		"you are gpt-",
		"you are claude-",
		"you are running as",
		"interactive cli coding agent",
		"plan mode is active",
	}
)

// Extract keeps the messages worth summarizing and narrows each to the text
// a person wrote or read. Seq is preserved.
func Extract(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "" || m.Role == RoleSystem {
			continue
		}

		text := m.Text
		if len(strings.TrimSpace(text)) < minMessageChars {
			continue
		}

		if m.Role == RoleUser {
			text = userQuery(text)
			if len(strings.TrimSpace(text)) < minMessageChars {
				continue
			}
		}

		if isMetadata(text) {
			continue
		}

		out = append(out, Message{Seq: m.Seq, Role: m.Role, Text: truncateRunes(text, maxMessageChars)})
	}

	return out
}

// Meaningful reports whether the combined text of messages is substantial
// enough to summarize.
func Meaningful(messages []Message) bool {
	chars, letters := 0, 0
	for _, m := range messages {
		for _, r := range m.Text {
			chars++
			if unicode.IsLetter(r) {
				letters++
			}
		}
	}
	return chars >= meaningfulChars && letters >= meaningfulLetters
}

func userQuery(text string) string {
	if match := userQueryRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}

	trimmed := strings.TrimSpace(text)
	for _, tag := range metadataTags {
		if strings.HasPrefix(trimmed, tag) {
			return ""
		}
	}

	if strings.Contains(text, "<system_reminder>") {
		if i := strings.LastIndex(text, "</system_reminder>"); i >= 0 {
			return strings.TrimSpace(text[i+len("</system_reminder>"):])
		}
	}

	return text
}

func isMetadata(text string) bool {
	if len(text) > metadataMaxChars {
		return false
	}

	lower := strings.ToLower(text)
	for _, indicator := range metadataIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
