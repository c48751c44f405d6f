// Package eventstream publishes catalog change events to an event stream
// backend.
package eventstream

import "context"

// Publisher publishes summary events to an event stream backend.
type Publisher interface {
	PublishSummary(ctx context.Context, event *SummaryIndexedEvent) error
	Close() error
}
