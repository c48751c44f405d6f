// Package pipeline turns the new messages of a Cursor session into an
// updated catalog summary.
//
// Every run re-derives what is new from the persisted watermark, so the
// pipeline does not care why it was invoked: a hook event, a file change,
// a schedule or a backfill all go through Process.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/papercomputeco/curlens/pkg/agent"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/chatstore"
	"github.com/papercomputeco/curlens/pkg/eventstream"
	"github.com/papercomputeco/curlens/pkg/index"
	"github.com/papercomputeco/curlens/pkg/workspace"
)

const untitled = "Untitled"

// Resolver maps a chat directory hash to its workspace path.
type Resolver interface {
	Resolve(hash string) (string, error)
}

// Summarizer writes or updates a session summary.
type Summarizer interface {
	Summarize(ctx context.Context, prior string, messages []chatstore.Message) (string, error)
}

// Catalog is the persistence the pipeline needs.
type Catalog interface {
	Get(ctx context.Context, sessionID string) (*catalog.Entry, error)
	Watermark(ctx context.Context, sessionID string) (*index.Watermark, error)
	Commit(ctx context.Context, entry catalog.Entry, wm index.Watermark) error
	ResetWatermark(ctx context.Context, sessionID string) error
	RejectedSeq(ctx context.Context, sessionID string) (int64, error)
	Reject(ctx context.Context, sessionID string, lastSeq int64) error
}

// Status tells what a successful Process did.
type Status string

const (
	// StatusSummarized means a new summary was committed.
	StatusSummarized Status = "summarized"

	// StatusUnchanged means nothing was new and the stored entry was returned.
	StatusUnchanged Status = "unchanged"
)

// Result is the outcome of a successful Process.
type Result struct {
	Entry       *catalog.Entry
	Status      Status
	NewMessages int
}

// Plan is what Process would do for a session, computed without calling the
// summarizer or writing anything.
type Plan struct {
	Session       chatstore.Session
	Title         string
	WorkspacePath string
	NewMessages   int
	Continuation  bool

	// Indexed reports whether the session already has a catalog entry.
	Indexed bool
}

// Pipeline processes one session at a time. It is safe for concurrent use
// on distinct sessions.
type Pipeline struct {
	resolver   Resolver
	catalog    Catalog
	summarizer Summarizer
	publisher  eventstream.Publisher
	logger     *slog.Logger
}

// New creates a Pipeline.
func New(resolver Resolver, store Catalog, summarizer Summarizer, publisher eventstream.Publisher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		resolver:   resolver,
		catalog:    store,
		summarizer: summarizer,
		publisher:  publisher,
		logger:     logger.With("component", "pipeline"),
	}
}

// snapshot is everything read about a session before deciding what to do.
type snapshot struct {
	meta  *chatstore.Meta
	path  string
	entry *catalog.Entry
	prior *index.Watermark
	delta index.Delta
}

// Process brings the catalog entry of session up to date.
//
// It returns a *SkipError when the session is not indexed and a *FailError
// when it could not be; in both cases entry and watermark are unchanged.
func (p *Pipeline) Process(ctx context.Context, session chatstore.Session) (*Result, error) {
	log := p.logger.With("session", session.ID)

	snap, err := p.inspect(ctx, session, true)
	if err != nil {
		return nil, err
	}

	if snap.delta.Empty() {
		if snap.entry != nil {
			log.Debug("no new messages", "last_seq", snap.delta.LastSeq)
			return &Result{Entry: snap.entry, Status: StatusUnchanged}, nil
		}
		return nil, skip(ReasonNoMessages)
	}

	extracted := chatstore.Extract(snap.delta.New)
	if len(extracted) == 0 {
		return nil, skip(ReasonNoMessages)
	}
	if !chatstore.Meaningful(extracted) {
		return nil, skip(ReasonNoMeaningfulContent)
	}

	var prior string
	if snap.prior != nil {
		prior = snap.prior.Summary
	}

	start := time.Now()
	summary, err := p.summarizer.Summarize(ctx, prior, extracted)
	if err != nil {
		log.Warn("summarizer failed", "error", err, "duration", time.Since(start))
		return nil, fail(ReasonSummarizer, err)
	}
	if !agent.Actionable(summary) {
		log.Debug("summary not actionable", "summary", summary, "last_seq", snap.delta.LastSeq)
		if err := p.catalog.Reject(ctx, session.ID, snap.delta.LastSeq); err != nil {
			log.Warn("recording rejection failed", "error", err)
		}
		return nil, skip(ReasonNotActionable)
	}

	updated := session.ModifiedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	updated = updated.Truncate(time.Millisecond)

	entry := catalog.Entry{
		SessionID:     session.ID,
		WorkspacePath: snap.path,
		Title:         title(snap.meta),
		Summary:       summary,
		CreatedAt:     created(snap.meta, snap.entry, updated),
		UpdatedAt:     updated,
	}
	wm := index.Watermark{
		SessionID: session.ID,
		LastSeq:   snap.delta.LastSeq,
		Summary:   summary,
		UpdatedAt: time.Now(),
	}

	if err := p.catalog.Commit(ctx, entry, wm); err != nil {
		if errors.Is(err, catalog.ErrStaleWatermark) {
			return p.superseded(ctx, session.ID, wm.LastSeq)
		}
		return nil, fail(ReasonCommit, err)
	}

	var previous int64
	if snap.prior != nil {
		previous = snap.prior.LastSeq
	}
	log.Info("summary committed",
		"workspace", snap.path,
		"new_messages", len(snap.delta.New),
		"last_seq", wm.LastSeq,
		"continuation", snap.prior != nil,
	)

	p.publish(ctx, entry, eventstream.EventMark{
		PreviousSeq: previous,
		LastSeq:     wm.LastSeq,
		NewMessages: len(snap.delta.New),
	})

	return &Result{Entry: &entry, Status: StatusSummarized, NewMessages: len(snap.delta.New)}, nil
}

// superseded answers a Process whose commit lost to a concurrent run that
// already covered lastSeq. The winner's entry is returned unchanged.
func (p *Pipeline) superseded(ctx context.Context, sessionID string, lastSeq int64) (*Result, error) {
	p.logger.Debug("watermark advanced by another run, discarding summary",
		"session", sessionID,
		"last_seq", lastSeq,
	)

	entry, err := p.catalog.Get(ctx, sessionID)
	if err != nil {
		return nil, fail(ReasonState, err)
	}
	return &Result{Entry: entry, Status: StatusUnchanged}, nil
}

// Inspect runs the read-only part of Process: origin filtering, workspace
// resolution and the diff against the watermark. It never repairs state.
func (p *Pipeline) Inspect(ctx context.Context, session chatstore.Session) (*Plan, error) {
	snap, err := p.inspect(ctx, session, false)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Session:       session,
		Title:         title(snap.meta),
		WorkspacePath: snap.path,
		NewMessages:   len(snap.delta.New),
		Continuation:  snap.prior != nil,
		Indexed:       snap.entry != nil,
	}, nil
}

func (p *Pipeline) inspect(ctx context.Context, session chatstore.Session, repair bool) (*snapshot, error) {
	log := p.logger.With("session", session.ID)

	reader, err := chatstore.Open(ctx, session)
	if err != nil {
		return nil, fail(ReasonRead, err)
	}
	defer reader.Close()

	meta, err := reader.Meta(ctx)
	if err != nil {
		return nil, fail(ReasonRead, err)
	}
	messages, err := reader.Messages(ctx)
	if err != nil {
		return nil, fail(ReasonRead, err)
	}

	if chatstore.DetectOrigin(meta, messages) != chatstore.OriginCLI {
		return nil, skip(ReasonUnsupportedOrigin)
	}

	path, err := p.resolver.Resolve(session.WorkspaceHash)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return nil, skip(ReasonUnknownWorkspace)
		}
		return nil, fail(ReasonResolve, err)
	}

	entry, err := p.catalog.Get(ctx, session.ID)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, fail(ReasonState, err)
	}
	prior, err := p.catalog.Watermark(ctx, session.ID)
	if err != nil {
		return nil, fail(ReasonState, err)
	}

	rebuilt := false
	reset := func(why string) error {
		log.Warn("rebuilding session from scratch", "reason", why)
		prior = nil
		rebuilt = true
		if !repair {
			return nil
		}
		if err := p.catalog.ResetWatermark(ctx, session.ID); err != nil {
			return fail(ReasonState, err)
		}
		return nil
	}

	switch {
	case prior != nil && entry == nil:
		if err := reset("watermark without summary"); err != nil {
			return nil, err
		}
	case prior != nil && entry.WorkspacePath != path:
		if err := reset("workspace changed"); err != nil {
			return nil, err
		}
	}

	delta, err := index.Diff(messages, prior)
	if errors.Is(err, index.ErrCorruptWatermark) {
		if err := reset(err.Error()); err != nil {
			return nil, err
		}
		delta, err = index.Diff(messages, nil)
	}
	if err != nil {
		return nil, fail(ReasonState, err)
	}

	// Messages already judged not actionable are not sent again until more
	// arrive.
	if !rebuilt && !delta.Empty() {
		rejected, err := p.catalog.RejectedSeq(ctx, session.ID)
		if err != nil {
			return nil, fail(ReasonState, err)
		}
		if rejected >= delta.LastSeq {
			log.Debug("no messages since last rejected summary", "last_seq", rejected)
			return nil, skip(ReasonNotActionable)
		}
	}

	return &snapshot{
		meta:  meta,
		path:  path,
		entry: entry,
		prior: prior,
		delta: delta,
	}, nil
}

func (p *Pipeline) publish(ctx context.Context, entry catalog.Entry, mark eventstream.EventMark) {
	if p.publisher == nil {
		return
	}

	event := eventstream.NewSummaryIndexedEvent(eventstream.EventSession{
		ID:            entry.SessionID,
		WorkspacePath: entry.WorkspacePath,
		Title:         entry.Title,
	}, entry.Summary, mark)

	if err := p.publisher.PublishSummary(ctx, event); err != nil {
		p.logger.Warn("publishing summary event failed", "session", entry.SessionID, "error", err)
	}
}

func title(meta *chatstore.Meta) string {
	if meta == nil || meta.Name == "" {
		return untitled
	}
	return meta.Name
}

func created(meta *chatstore.Meta, existing *catalog.Entry, fallback time.Time) time.Time {
	if existing != nil && !existing.CreatedAt.IsZero() {
		return existing.CreatedAt
	}
	if meta != nil && meta.CreatedAt > 0 {
		return meta.Created()
	}
	return fallback
}
