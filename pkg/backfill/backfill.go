// Package backfill runs the summarization pipeline over every session on
// disk.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/curlens/pkg/chatstore"
	"github.com/papercomputeco/curlens/pkg/pipeline"
)

// Options configures backfill behavior.
type Options struct {
	// DryRun inspects sessions and reports what would be summarized without
	// calling the summarizer or writing anything.
	DryRun bool

	// Limit caps how many sessions are summarized in one run. Zero means no
	// cap.
	Limit int

	// Workers is the number of sessions summarized in parallel.
	Workers int
}

// Discoverer lists the sessions on disk.
type Discoverer interface {
	Discover(ctx context.Context) ([]chatstore.Session, error)
}

// Processor is the per-session pipeline.
type Processor interface {
	Inspect(ctx context.Context, session chatstore.Session) (*pipeline.Plan, error)
	Process(ctx context.Context, session chatstore.Session) (*pipeline.Result, error)
}

// Pruner removes catalog rows of sessions that no longer exist.
type Pruner interface {
	Prune(ctx context.Context, keep []string) (int, error)
}

// Backfiller summarizes every session that has messages past its watermark.
type Backfiller struct {
	sessions Discoverer
	pipeline Processor
	catalog  Pruner
	options  Options
	logger   *slog.Logger

	done  atomic.Int64
	total atomic.Int64
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(sessions Discoverer, processor Processor, catalog Pruner, opts Options, logger *slog.Logger) *Backfiller {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Backfiller{
		sessions: sessions,
		pipeline: processor,
		catalog:  catalog,
		options:  opts,
		logger:   logger.With("component", "backfill"),
	}
}

// Progress returns the number of sessions summarized so far and the number
// queued for this run.
func (b *Backfiller) Progress() (done, total int) {
	return int(b.done.Load()), int(b.total.Load())
}

// Run discovers sessions, inspects each one and summarizes those with new
// messages. A failing session never aborts the run; it is counted in the
// Result instead.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := newResult(uuid.NewString())
	log := b.logger.With("run", result.RunID)

	sessions, err := b.sessions.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover sessions: %w", err)
	}
	result.Discovered = len(sessions)
	log.Info("discovered sessions", "count", len(sessions))

	var pending []*pipeline.Plan
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		plan, err := b.pipeline.Inspect(ctx, session)
		if err != nil {
			result.record(session.ID, err)
			continue
		}

		switch {
		case plan.NewMessages > 0:
			pending = append(pending, plan)
		case plan.Indexed:
			result.Unchanged++
		default:
			result.Skipped[pipeline.ReasonNoMessages]++
		}
	}

	if b.options.Limit > 0 && len(pending) > b.options.Limit {
		result.Deferred = len(pending) - b.options.Limit
		pending = pending[:b.options.Limit]
	}

	if b.options.DryRun {
		result.DryRun = true
		result.Planned = pending
		result.Duration = time.Since(start)
		return result, nil
	}

	b.total.Store(int64(len(pending)))
	b.done.Store(0)

	outcomes := make([]error, len(pending))
	summarized := make([]bool, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Workers)

	for i, plan := range pending {
		g.Go(func() error {
			defer b.done.Add(1)

			if gctx.Err() != nil {
				outcomes[i] = gctx.Err()
				return nil
			}

			res, err := b.pipeline.Process(gctx, plan.Session)
			if err != nil {
				outcomes[i] = err
				return nil
			}

			summarized[i] = res.Status == pipeline.StatusSummarized
			log.Debug("session processed",
				"session", plan.Session.ID,
				"status", res.Status,
				"new_messages", res.NewMessages,
			)
			return nil
		})
	}
	_ = g.Wait()

	for i, plan := range pending {
		switch {
		case outcomes[i] != nil:
			result.record(plan.Session.ID, outcomes[i])
		case summarized[i]:
			result.Summarized++
		default:
			result.Unchanged++
		}
	}

	if len(sessions) > 0 {
		keep := make([]string, len(sessions))
		for i, s := range sessions {
			keep[i] = s.ID
		}

		pruned, err := b.catalog.Prune(ctx, keep)
		if err != nil {
			log.Warn("pruning stale entries failed", "error", err)
		}
		result.Pruned = pruned
	}

	result.Duration = time.Since(start)
	log.Info("backfill finished",
		"summarized", result.Summarized,
		"unchanged", result.Unchanged,
		"failed", result.FailedCount(),
		"duration", result.Duration,
	)

	return result, ctx.Err()
}

func (r *Result) record(sessionID string, err error) {
	var skipErr *pipeline.SkipError
	if errors.As(err, &skipErr) {
		r.Skipped[skipErr.Reason]++
		return
	}

	var failErr *pipeline.FailError
	if errors.As(err, &failErr) {
		r.Failed[failErr.Reason]++
	} else {
		r.Failed[reasonCancelled]++
	}
	r.Errors = append(r.Errors, SessionError{SessionID: sessionID, Err: err})
}
