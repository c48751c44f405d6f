package eventstream

import "errors"

// ErrNilSummaryEvent indicates a nil summary event payload was provided to a publisher.
var ErrNilSummaryEvent = errors.New("nil summary event")
