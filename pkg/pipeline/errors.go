package pipeline

import "fmt"

// Reason names why a session was skipped or failed.
type Reason string

const (
	ReasonUnsupportedOrigin   Reason = "unsupported_origin"
	ReasonUnknownWorkspace    Reason = "unknown_workspace"
	ReasonNoMessages          Reason = "no_messages"
	ReasonNoMeaningfulContent Reason = "no_meaningful_content"
	ReasonNotActionable       Reason = "not_actionable"

	ReasonRead       Reason = "read"
	ReasonResolve    Reason = "resolve"
	ReasonState      Reason = "state"
	ReasonSummarizer Reason = "summarizer"
	ReasonCommit     Reason = "commit"
)

// SkipError reports an expected decision not to index a session. Entry and
// watermark are never written; a not-actionable skip records only how far the
// rejected messages went.
type SkipError struct {
	Reason Reason
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped: %s", e.Reason)
}

// FailError reports a failure that leaves the session's watermark where it
// was, so the same messages are retried on the next run.
type FailError struct {
	Reason Reason
	Err    error
}

func (e *FailError) Error() string {
	return fmt.Sprintf("failed (%s): %v", e.Reason, e.Err)
}

func (e *FailError) Unwrap() error {
	return e.Err
}

func skip(reason Reason) error {
	return &SkipError{Reason: reason}
}

func fail(reason Reason, err error) error {
	return &FailError{Reason: reason, Err: err}
}
