package backfill

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/curlens/pkg/pipeline"
)

const reasonCancelled pipeline.Reason = "cancelled"

// SessionError is a session that failed during a run.
type SessionError struct {
	SessionID string
	Err       error
}

// Result contains statistics from a backfill run.
type Result struct {
	RunID      string
	DryRun     bool
	Discovered int
	Summarized int
	Unchanged  int
	Deferred   int
	Pruned     int
	Skipped    map[pipeline.Reason]int
	Failed     map[pipeline.Reason]int
	Errors     []SessionError

	// Planned is filled on dry runs with the sessions that would be
	// summarized.
	Planned []*pipeline.Plan

	Duration time.Duration
}

func newResult(runID string) *Result {
	return &Result{
		RunID:   runID,
		Skipped: map[pipeline.Reason]int{},
		Failed:  map[pipeline.Reason]int{},
	}
}

// SkippedCount returns the number of skipped sessions across all reasons.
func (r *Result) SkippedCount() int {
	return sum(r.Skipped)
}

// FailedCount returns the number of failed sessions across all reasons.
func (r *Result) FailedCount() int {
	return sum(r.Failed)
}

// Summary returns a human-readable summary of the backfill result.
func (r *Result) Summary() string {
	if r.DryRun {
		return fmt.Sprintf(
			"Dry run: %d of %d sessions would be summarized (%d unchanged, %d skipped, %d over limit)%s",
			len(r.Planned), r.Discovered, r.Unchanged, r.SkippedCount(), r.Deferred,
			breakdown("skipped", r.Skipped),
		)
	}

	return fmt.Sprintf(
		"Backfill complete: %d summarized, %d unchanged, %d skipped, %d failed\n"+
			"Scanned %d sessions, %d over limit, %d stale entries pruned%s%s",
		r.Summarized, r.Unchanged, r.SkippedCount(), r.FailedCount(),
		r.Discovered, r.Deferred, r.Pruned,
		breakdown("skipped", r.Skipped),
		breakdown("failed", r.Failed),
	)
}

func breakdown(label string, counts map[pipeline.Reason]int) string {
	if len(counts) == 0 {
		return ""
	}

	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", reason, counts[pipeline.Reason(reason)])
	}

	return fmt.Sprintf("\n%s: %s", label, strings.Join(parts, ", "))
}

func sum(counts map[pipeline.Reason]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
