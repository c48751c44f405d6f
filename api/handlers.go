package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/curlens/pkg/catalog"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionsResponse lists catalog entries.
type SessionsResponse struct {
	Sessions []catalog.Entry `json:"sessions"`
	Count    int             `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns catalog counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.catalog.Stats(c.Context())
	if err != nil {
		s.logger.Error("reading stats failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read stats"})
	}

	return c.JSON(stats)
}

// handleListSessions lists indexed sessions, most recent first.
// Query parameters:
//   - window_days (optional, default 0 = all): only sessions updated within this many days
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	var since time.Time
	if raw := c.Query("window_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "window_days must be a non-negative integer"})
		}
		if days > 0 {
			since = time.Now().AddDate(0, 0, -days)
		}
	}

	entries, err := s.catalog.List(c.Context(), since)
	if err != nil {
		s.logger.Error("listing sessions failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}

	return c.JSON(SessionsResponse{Sessions: entries, Count: len(entries)})
}

// handleGetSession returns a single catalog entry.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	entry, err := s.catalog.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
		}
		s.logger.Error("reading session failed", "session", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read session"})
	}

	return c.JSON(entry)
}
