package search

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/curlens/pkg/agent"
	"github.com/papercomputeco/curlens/pkg/catalog"
)

// AgentRanker asks the external agent to order candidates.
type AgentRanker interface {
	Rank(ctx context.Context, query string, candidates []agent.Candidate, maxResults int) ([]agent.Ranked, error)
}

// DelegatedRanker hands ranking to the external agent. When the agent fails,
// times out or picks nothing usable, the fallback ranker answers instead.
type DelegatedRanker struct {
	agent    AgentRanker
	fallback Ranker
	logger   *slog.Logger
}

// NewDelegatedRanker creates a DelegatedRanker that falls back to keyword
// ranking.
func NewDelegatedRanker(agentRanker AgentRanker, logger *slog.Logger) *DelegatedRanker {
	return &DelegatedRanker{
		agent:    agentRanker,
		fallback: KeywordRanker{},
		logger:   logger.With("component", "search"),
	}
}

func (d *DelegatedRanker) Name() string { return "smart" }

func (d *DelegatedRanker) Rank(ctx context.Context, query string, candidates []catalog.Entry, topK int) ([]Result, error) {
	results, _, err := d.answer(ctx, query, candidates, topK)
	return results, err
}

// answer ranks like Rank and also returns the ranker that produced the
// results, so a follow-up pass can skip an agent that already gave up.
func (d *DelegatedRanker) answer(ctx context.Context, query string, candidates []catalog.Entry, topK int) ([]Result, Ranker, error) {
	byID := make(map[string]catalog.Entry, len(candidates))
	offered := make([]agent.Candidate, len(candidates))
	for i, e := range candidates {
		byID[e.SessionID] = e
		offered[i] = agent.Candidate{
			ID:        e.SessionID,
			Title:     e.Title,
			Summary:   e.Summary,
			Workspace: e.WorkspacePath,
		}
	}

	ranked, err := d.agent.Rank(ctx, query, offered, topK)
	if err != nil {
		d.logger.Warn("agent ranking failed, using keyword ranking", "error", err)
		return d.fallBack(ctx, query, candidates, topK)
	}
	if len(ranked) == 0 {
		d.logger.Debug("agent ranked nothing, using keyword ranking")
		return d.fallBack(ctx, query, candidates, topK)
	}

	results := make([]Result, 0, len(ranked))
	for i, r := range ranked {
		results = append(results, Result{
			Entry:  byID[r.ID],
			Score:  float64(len(ranked) - i),
			Reason: r.Reason,
		})
	}

	return finalize(results, topK), d, nil
}

func (d *DelegatedRanker) fallBack(ctx context.Context, query string, candidates []catalog.Entry, topK int) ([]Result, Ranker, error) {
	results, err := d.fallback.Rank(ctx, query, candidates, topK)
	return results, d.fallback, err
}
