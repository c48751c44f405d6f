package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSummaryIndexed is emitted after a session summary is committed.
	EventTypeSummaryIndexed = "curlens.summary.indexed"
)

// SummaryIndexedEvent is a transport-neutral event payload for a committed summary.
type SummaryIndexedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Session       EventSession `json:"session"`
	Summary       string       `json:"summary"`
	Watermark     EventMark    `json:"watermark"`
}

// EventSession identifies the summarized session.
type EventSession struct {
	ID            string `json:"id"`
	WorkspacePath string `json:"workspace_path"`
	Title         string `json:"title,omitempty"`
}

// EventMark describes how the watermark moved.
type EventMark struct {
	PreviousSeq int64 `json:"previous_seq"`
	LastSeq     int64 `json:"last_seq"`
	NewMessages int   `json:"new_messages"`
}

// NewSummaryIndexedEvent stamps a fresh event id and emission time.
func NewSummaryIndexedEvent(session EventSession, summary string, mark EventMark) *SummaryIndexedEvent {
	return &SummaryIndexedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSummaryIndexed,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Session:       session,
		Summary:       summary,
		Watermark:     mark,
	}
}
