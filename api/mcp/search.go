package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/curlens/pkg/resume"
	"github.com/papercomputeco/curlens/pkg/search"
)

var (
	searchToolName    = "search_sessions"
	searchDescription = "Find past Cursor agent chat sessions from a description of what was worked on. Returns the best matching sessions with their workspace, summary and the command that resumes them."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"description of the session to find"`
	Smart      bool   `json:"smart,omitempty" jsonschema:"rank with the agent instead of keywords"`
	WindowDays *int   `json:"window_days,omitempty" jsonschema:"only consider sessions updated within this many days (0 for all)"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of results to return"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Rank          int       `json:"rank"`
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	WorkspacePath string    `json:"workspace_path"`
	Summary       string    `json:"summary"`
	UpdatedAt     time.Time `json:"updated_at"`
	Reason        string    `json:"reason,omitempty"`
	Resume        string    `json:"resume,omitempty"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	Count        int            `json:"count"`
	WindowLifted bool           `json:"window_lifted,omitempty"`
	Message      string         `json:"message,omitempty"`
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	windowDays := s.config.WindowDays
	if input.WindowDays != nil {
		windowDays = *input.WindowDays
	}
	topK := input.TopK
	if topK <= 0 {
		topK = s.config.TopK
	}
	mode := search.ModeKeyword
	if input.Smart {
		mode = search.ModeSmart
	}

	logger.Debug("MCP search request", "query", input.Query, "mode", mode, "window_days", windowDays, "top_k", topK)

	out, err := s.config.Engine.Search(ctx, search.Query{
		Text:       input.Query,
		WindowDays: windowDays,
		TopK:       topK,
		Ranker:     search.NewRanker(mode, s.config.AgentRanker, logger),
	})

	output := SearchOutput{Query: input.Query, Results: []SearchResult{}}
	switch {
	case err == nil:
		output.WindowLifted = out.WindowLifted
		for _, r := range out.Results {
			output.Results = append(output.Results, s.buildSearchResult(r))
		}
		output.Count = len(output.Results)
	case errors.Is(err, search.ErrNoMatches), errors.Is(err, search.ErrNoSessionsIndexed):
		output.Message = err.Error()
	case errors.Is(err, search.ErrEmptyQuery):
		return toolError("Invalid query: %v", err), SearchOutput{}, nil
	default:
		logger.Error("MCP search failed", "error", err)
		return toolError("Search failed: %v", err), SearchOutput{}, nil
	}

	// Structured content is mirrored as JSON text for clients that only
	// read text blocks.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return toolError("Failed to serialize results: %v", err), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func (s *Server) buildSearchResult(r search.Result) SearchResult {
	result := SearchResult{
		Rank:          r.Rank,
		SessionID:     r.Entry.SessionID,
		Title:         r.Entry.Title,
		WorkspacePath: r.Entry.WorkspacePath,
		Summary:       r.Entry.Summary,
		UpdatedAt:     r.Entry.UpdatedAt,
		Reason:        r.Reason,
	}

	if s.config.Launcher != nil {
		result.Resume = s.config.Launcher.ShellLine(resume.Target{
			WorkspacePath: r.Entry.WorkspacePath,
			SessionID:     r.Entry.SessionID,
		})
	}

	return result
}
