package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/curlens/pkg/search"
)

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): description of the session to find
//   - smart (optional, default false): rank through the agent
//   - window_days (optional): recency window, 0 searches everything
//   - top_k (optional): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := s.config.TopK
	if raw := c.Query("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	windowDays := s.config.WindowDays
	if raw := c.Query("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "window_days must be a non-negative integer",
			})
		}
		windowDays = parsed
	}

	mode := search.ModeKeyword
	if raw := c.Query("smart"); raw != "" {
		smart, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "smart must be a boolean",
			})
		}
		if smart {
			mode = search.ModeSmart
		}
	}

	output, err := s.engine.Search(c.Context(), search.Query{
		Text:       query,
		WindowDays: windowDays,
		TopK:       topK,
		Ranker:     search.NewRanker(mode, s.agent, s.logger),
	})
	switch {
	case err == nil:
		return c.JSON(output)
	case errors.Is(err, search.ErrNoMatches):
		return c.JSON(search.Output{Query: query, Results: []search.Result{}})
	case errors.Is(err, search.ErrEmptyQuery):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrNoSessionsIndexed):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("search failed", "query", query, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "search failed"})
	}
}
