package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparsable is returned when a ranking reply holds no JSON array.
var ErrUnparsable = errors.New("unparsable ranking")

// Ranked is one entry of the agent's ranking.
type Ranked struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Ranker orders search candidates through the agent.
type Ranker struct {
	runner Runner
	model  string
}

func NewRanker(runner Runner, model string) *Ranker {
	return &Ranker{runner: runner, model: model}
}

// Rank asks the agent which candidates match query, best first. Ids the
// agent invents are dropped, as are duplicates.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []Candidate, maxResults int) ([]Ranked, error) {
	out, err := r.runner.Run(ctx, r.model, RankPrompt(query, candidates, maxResults))
	if err != nil {
		return nil, err
	}

	ranked, err := ParseRanking(out)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(ranked))
	result := make([]Ranked, 0, len(ranked))
	for _, rk := range ranked {
		if _, ok := known[rk.ID]; !ok {
			continue
		}
		if _, dup := seen[rk.ID]; dup {
			continue
		}
		seen[rk.ID] = struct{}{}
		result = append(result, rk)
	}

	return result, nil
}

// ParseRanking extracts the JSON array between the first "[" and the last
// "]" of a reply. Array items that are not objects with an id are skipped.
func ParseRanking(reply string) ([]Ranked, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, ErrUnparsable
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(reply[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	ranked := make([]Ranked, 0, len(items))
	for _, item := range items {
		var rk Ranked
		if err := json.Unmarshal(item, &rk); err != nil || rk.ID == "" {
			continue
		}
		ranked = append(ranked, rk)
	}

	return ranked, nil
}
