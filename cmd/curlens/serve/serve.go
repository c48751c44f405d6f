// Package servecmder provides the serve command, which runs the search API
// and the MCP endpoint.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/api"
	"github.com/papercomputeco/curlens/api/mcp"
	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/resume"
)

const serveLongDesc string = `Serve the curlens catalog over HTTP.

Endpoints:
  GET /ping                    Health check
  GET /v1/stats                Catalog counts
  GET /v1/search?query=...     Search sessions (smart, window_days, top_k)
  GET /v1/sessions             Recently updated sessions (window_days)
  GET /v1/sessions/:id         One session
  /mcp                         MCP endpoint with the search_sessions tool

Examples:
  curlens serve
  curlens serve --listen :9000 --no-mcp`

const serveShortDesc string = "Serve the search API and MCP endpoint"

const serveLogFile = "serve.log"

type serveCommander struct {
	listen       string
	sqlitePath   string
	agentCommand string
	searchModel  string
	noMCP        bool
}

var flags = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagAgentCommand,
	config.FlagSearchModel,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagAgentCommand, &cmder.agentCommand)
	config.AddStringFlag(cmd, config.Flags, config.FlagSearchModel, &cmder.searchModel)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := app.LoadSettings(cmd, flags...)
	if err != nil {
		return err
	}
	logger, closeLog := settings.NewServiceLogger(serveLogFile)
	defer closeLog()

	a, err := app.Open(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing runtime", "error", err)
		}
	}()

	server, err := newServer(a, c.noMCP)
	if err != nil {
		return err
	}

	return serve(server, settings.Config.API.Listen, logger)
}

// newServer builds the API server over a's catalog, with the MCP endpoint
// mounted unless noMCP is set.
func newServer(a *app.App, noMCP bool) (*api.Server, error) {
	cfg := a.Settings.Config

	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
		WindowDays: int(cfg.Search.WindowDays),
		TopK:       int(cfg.Search.MaxResults),
	}

	if !noMCP {
		launcher, err := resume.NewLauncher(cfg.Agent.Command)
		if err != nil {
			return nil, err
		}

		mcpServer, err := mcp.NewServer(mcp.Config{
			Engine:      a.Engine(),
			AgentRanker: a.AgentRanker(),
			Launcher:    launcher,
			WindowDays:  apiConfig.WindowDays,
			TopK:        apiConfig.TopK,
			Logger:      a.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	return api.NewServer(apiConfig, a.Catalog, a.AgentRanker(), a.Logger)
}

func serve(server *api.Server, listen string, logger *slog.Logger) error {
	logger.Info("starting api server", "api_addr", listen)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
