// Package index tracks how far each session's messages have been folded
// into its summary.
package index

import (
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/curlens/pkg/chatstore"
)

// ErrCorruptWatermark is returned when a watermark points past the end of
// the session it belongs to. The watermark must be discarded and the session
// rebuilt from scratch.
var ErrCorruptWatermark = errors.New("watermark beyond end of session")

// Watermark is the persisted progress marker of one session.
type Watermark struct {
	SessionID string
	LastSeq   int64
	Summary   string
	UpdatedAt time.Time
}

// Delta is the result of diffing a session against its watermark.
type Delta struct {
	// New holds the messages past the watermark, in log order.
	New []chatstore.Message

	// LastSeq is the position the watermark moves to once New is committed.
	// It equals the prior position when New is empty.
	LastSeq int64
}

// Empty reports whether there is nothing past the watermark.
func (d Delta) Empty() bool {
	return len(d.New) == 0
}

// Diff returns the messages strictly past prior. A nil prior means every
// message is new. Diff does not mutate anything; progress is only recorded
// when the caller commits Delta.LastSeq.
func Diff(messages []chatstore.Message, prior *Watermark) (Delta, error) {
	var last int64
	if prior != nil {
		last = prior.LastSeq
	}

	var maxSeq int64
	for _, m := range messages {
		if m.Seq > maxSeq {
			maxSeq = m.Seq
		}
	}

	if prior != nil && prior.LastSeq > maxSeq {
		return Delta{}, fmt.Errorf("%w: session %s at %d, log ends at %d",
			ErrCorruptWatermark, prior.SessionID, prior.LastSeq, maxSeq)
	}

	delta := Delta{LastSeq: last}
	for _, m := range messages {
		if m.Seq <= last {
			continue
		}
		delta.New = append(delta.New, m)
		if m.Seq > delta.LastSeq {
			delta.LastSeq = m.Seq
		}
	}

	return delta, nil
}
