// Package search finds indexed sessions from a free-text description.
//
// Ranking is pluggable through Ranker. KeywordRanker is deterministic and
// works offline; DelegatedRanker asks the external agent and falls back to
// keyword ranking whenever the agent cannot answer.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/curlens/pkg/catalog"
)

var (
	// ErrEmptyQuery is returned for a query with no searchable terms.
	ErrEmptyQuery = errors.New("empty search query")

	// ErrNoSessionsIndexed is returned when the catalog is empty.
	ErrNoSessionsIndexed = errors.New("no sessions indexed yet")

	// ErrNoMatches is returned when no indexed session matches the query.
	ErrNoMatches = errors.New("no matching sessions")
)

const (
	DefaultWindowDays = 20
	DefaultTopK       = 3
)

// Mode selects a ranking strategy.
type Mode string

const (
	ModeKeyword Mode = "keyword"
	ModeSmart   Mode = "smart"
)

// ParseMode validates a mode name. An empty name means keyword.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeKeyword:
		return ModeKeyword, nil
	case ModeSmart:
		return ModeSmart, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want %q or %q)", s, ModeKeyword, ModeSmart)
	}
}

// NewRanker returns the ranker for mode. Smart mode without an agent ranks
// by keyword.
func NewRanker(mode Mode, agentRanker AgentRanker, logger *slog.Logger) Ranker {
	if mode == ModeSmart && agentRanker != nil {
		return NewDelegatedRanker(agentRanker, logger)
	}
	return KeywordRanker{}
}

// Ranker orders candidate entries by relevance to a query and returns at
// most topK of them, ranked from 1.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, query string, candidates []catalog.Entry, topK int) ([]Result, error)
}

// Result is one ranked entry.
type Result struct {
	Entry  catalog.Entry `json:"entry"`
	Score  float64       `json:"score"`
	Rank   int           `json:"rank"`
	Reason string        `json:"reason,omitempty"`
}

// Lister reads the catalog.
type Lister interface {
	List(ctx context.Context, since time.Time) ([]catalog.Entry, error)
}

// Query is one search request.
type Query struct {
	Text string

	// WindowDays restricts candidates to entries updated within this many
	// days. Zero or less searches the whole catalog.
	WindowDays int

	TopK int

	// Ranker defaults to KeywordRanker.
	Ranker Ranker
}

// Output is the result of a search.
type Output struct {
	Query   string   `json:"query"`
	Ranker  string   `json:"ranker"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`

	// Candidates is the number of entries handed to the ranker.
	Candidates int `json:"candidates"`

	// WindowLifted is set when the recency window was dropped because it
	// left nothing to match.
	WindowLifted bool `json:"window_lifted"`
}

// Engine runs queries against the catalog.
type Engine struct {
	catalog Lister
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's notion of now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine over the catalog.
func NewEngine(lister Lister, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog: lister,
		logger:  logger.With("component", "search"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search ranks the catalog against q.
//
// Candidates are first restricted to the recency window. When the window
// holds no entry, or none of its entries match, the whole catalog is
// searched instead and Output.WindowLifted is set. If the ranker fell
// back on the first pass, the widened pass goes straight to the fallback.
func (e *Engine) Search(ctx context.Context, q Query) (*Output, error) {
	if len(QueryTerms(q.Text)) == 0 {
		return nil, ErrEmptyQuery
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	ranker := q.Ranker
	if ranker == nil {
		ranker = KeywordRanker{}
	}

	all, err := e.catalog.List(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(all) == 0 {
		return nil, ErrNoSessionsIndexed
	}

	out := &Output{Query: q.Text, Ranker: ranker.Name()}

	candidates := all
	if q.WindowDays > 0 {
		candidates = within(all, e.now().AddDate(0, 0, -q.WindowDays))
		if len(candidates) == 0 {
			e.logger.Debug("recency window is empty, searching all sessions", "window_days", q.WindowDays)
			candidates = all
			out.WindowLifted = true
		}
	}

	results, answered, err := rank(ctx, ranker, q.Text, candidates, q.TopK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && len(candidates) < len(all) {
		e.logger.Debug("no match in recency window, searching all sessions", "window_days", q.WindowDays, "ranker", answered.Name())
		candidates = all
		out.WindowLifted = true

		results, err = answered.Rank(ctx, q.Text, candidates, q.TopK)
		if err != nil {
			return nil, err
		}
	}

	if len(results) == 0 {
		return nil, ErrNoMatches
	}

	out.Candidates = len(candidates)
	out.Results = results
	out.Count = len(results)
	return out, nil
}

// answerer is a ranker that may hand a query to another ranker.
type answerer interface {
	answer(ctx context.Context, query string, candidates []catalog.Entry, topK int) ([]Result, Ranker, error)
}

// rank runs r and reports which ranker actually answered.
func rank(ctx context.Context, r Ranker, query string, candidates []catalog.Entry, topK int) ([]Result, Ranker, error) {
	if a, ok := r.(answerer); ok {
		return a.answer(ctx, query, candidates, topK)
	}
	results, err := r.Rank(ctx, query, candidates, topK)
	return results, r, err
}

func within(entries []catalog.Entry, since time.Time) []catalog.Entry {
	var kept []catalog.Entry
	for _, e := range entries {
		if !e.UpdatedAt.Before(since) {
			kept = append(kept, e)
		}
	}
	return kept
}

// finalize caps results at topK and numbers them from 1.
func finalize(results []Result, topK int) []Result {
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
