package cliui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/curlens/pkg/search"
	"github.com/papercomputeco/curlens/pkg/utils"
)

const (
	minWidth     = 40
	summaryLines = 3
)

// RenderResult formats one search result as a numbered block that fits in
// width columns.
func RenderResult(r search.Result, now time.Time, width int) string {
	if width < minWidth {
		width = minWidth
	}
	indent := strings.Repeat(" ", len(fmt.Sprint(r.Rank))+2)

	var b strings.Builder

	header := fmt.Sprintf("%s %s", AccentStyle.Render(fmt.Sprintf("%d.", r.Rank)), TitleStyle.Render(r.Entry.Title))
	b.WriteString(ansi.Truncate(header, width, "…"))
	b.WriteString("\n")

	meta := fmt.Sprintf("%s%s · %s · %s", indent, r.Entry.WorkspacePath, utils.ShortID(r.Entry.SessionID), utils.Ago(r.Entry.UpdatedAt, now))
	b.WriteString(MutedStyle.Render(ansi.Truncate(meta, width, "…")))
	b.WriteString("\n")

	wrapped := strings.Split(ansi.Wrap(r.Entry.Summary, width-len(indent), " "), "\n")
	if len(wrapped) > summaryLines {
		wrapped = wrapped[:summaryLines]
		wrapped[summaryLines-1] = ansi.Truncate(wrapped[summaryLines-1]+" …", width-len(indent), "…")
	}
	for _, line := range wrapped {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}

	if r.Reason != "" {
		b.WriteString(indent)
		b.WriteString(StepStyle.Render(ansi.Truncate("↳ "+r.Reason, width-len(indent), "…")))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderResults formats a whole search output.
func RenderResults(out *search.Output, now time.Time, width int) string {
	var b strings.Builder

	if out.WindowLifted {
		b.WriteString(WarnStyle.Render("Nothing recent matched, showing older sessions."))
		b.WriteString("\n\n")
	}

	for i, r := range out.Results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(RenderResult(r, now, width))
	}

	return b.String()
}
