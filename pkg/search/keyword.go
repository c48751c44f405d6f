package search

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papercomputeco/curlens/pkg/catalog"
)

// Field weights. A term counts once per entry, with the weight of the best
// field it appears in.
const (
	titleWeight     = 3
	workspaceWeight = 2
	summaryWeight   = 1

	// Terms this long also match as a prefix ("checkpoint" matches
	// "checkpointing").
	minPrefixLen = 4
)

// KeywordRanker scores entries by the query terms present in their title,
// workspace directory name and summary. It is deterministic and needs no
// external service.
type KeywordRanker struct{}

func (KeywordRanker) Name() string { return "keyword" }

// Rank returns the entries matching at least one term, best first. Ties go
// to the most recently updated entry, then to the lowest session id.
func (KeywordRanker) Rank(_ context.Context, query string, candidates []catalog.Entry, topK int) ([]Result, error) {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	var results []Result
	for _, entry := range candidates {
		score, matched := scoreEntry(terms, entry)
		if score == 0 {
			continue
		}
		results = append(results, Result{
			Entry:  entry,
			Score:  float64(score),
			Reason: "matched " + strings.Join(matched, ", "),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Entry.UpdatedAt.Equal(b.Entry.UpdatedAt) {
			return a.Entry.UpdatedAt.After(b.Entry.UpdatedAt)
		}
		return a.Entry.SessionID < b.Entry.SessionID
	})

	return finalize(results, topK), nil
}

func scoreEntry(terms []string, entry catalog.Entry) (int, []string) {
	fields := []struct {
		tokens []string
		weight int
	}{
		{Tokenize(entry.Title), titleWeight},
		{Tokenize(filepath.Base(entry.WorkspacePath)), workspaceWeight},
		{Tokenize(entry.Summary), summaryWeight},
	}

	score := 0
	var matched []string
	for _, term := range terms {
		best := 0
		for _, f := range fields {
			if f.weight > best && contains(f.tokens, term) {
				best = f.weight
			}
		}
		if best > 0 {
			score += best
			matched = append(matched, term)
		}
	}

	return score, matched
}

func contains(tokens []string, term string) bool {
	for _, tok := range tokens {
		if tok == term {
			return true
		}
		if len(term) >= minPrefixLen && strings.HasPrefix(tok, term) {
			return true
		}
	}
	return false
}
