// Package mcp provides an MCP (Model Context Protocol) server that lets
// agents search the curlens catalog.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/curlens/pkg/resume"
	"github.com/papercomputeco/curlens/pkg/search"
	"github.com/papercomputeco/curlens/pkg/utils"
)

type Config struct {
	// Engine runs searches over the catalog
	Engine *search.Engine

	// AgentRanker enables smart mode (optional)
	AgentRanker search.AgentRanker

	// Launcher renders the resume command of each result (optional)
	Launcher *resume.Launcher

	// WindowDays and TopK are the defaults for requests that omit them
	WindowDays int
	TopK       int

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the search tool.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "curlens",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Engine == nil {
			return nil, errors.New("search engine is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)
	}

	s.mcpServer = mcpServer

	// Stateless streamable HTTP: every request gets the same server.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
