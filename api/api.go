package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/search"
)

// Catalog is the read side of the catalog the API serves.
type Catalog interface {
	List(ctx context.Context, since time.Time) ([]catalog.Entry, error)
	Get(ctx context.Context, sessionID string) (*catalog.Entry, error)
	Stats(ctx context.Context) (catalog.Stats, error)
}

// Server is the API server for querying indexed sessions.
type Server struct {
	config  Config
	catalog Catalog
	engine  *search.Engine
	agent   search.AgentRanker
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server. agentRanker may be nil, in which case
// smart searches rank by keyword.
func NewServer(config Config, store Catalog, agentRanker search.AgentRanker, logger *slog.Logger) (*Server, error) {
	if config.WindowDays < 0 {
		config.WindowDays = 0
	}
	if config.TopK <= 0 {
		config.TopK = search.DefaultTopK
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		catalog: store,
		engine:  search.NewEngine(store, logger),
		agent:   agentRanker,
		logger:  logger.With("component", "api"),
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/stats", s.handleStats)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Get("/v1/sessions", s.handleListSessions)
	app.Get("/v1/sessions/:id", s.handleGetSession)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
