// Package app assembles the curlens runtime shared by every command:
// effective configuration, logger, catalog, session store, resolver and
// the external agent.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/curlens/pkg/agent"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/chatstore"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/dotdir"
	"github.com/papercomputeco/curlens/pkg/eventstream"
	"github.com/papercomputeco/curlens/pkg/logger"
	"github.com/papercomputeco/curlens/pkg/pipeline"
	"github.com/papercomputeco/curlens/pkg/search"
	"github.com/papercomputeco/curlens/pkg/workspace"
)

const catalogFile = "curlens.db"

// Settings is the effective configuration of one command invocation.
type Settings struct {
	Config *config.Config
	DotDir string
}

// LoadSettings resolves the configuration for cmd: registered flags bound
// through keys, then CURLENS_* env, config.toml and defaults.
func LoadSettings(cmd *cobra.Command, keys ...string) (*Settings, error) {
	configDir := ""
	if f := cmd.Flag("config-dir"); f != nil {
		configDir = f.Value.String()
	}

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)
	bindDebug(v, cmd)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, err
	}

	return &Settings{Config: config.FromViper(v), DotDir: dir}, nil
}

func bindDebug(v *viper.Viper, cmd *cobra.Command) {
	if f := cmd.Flag("debug"); f != nil && f.Changed {
		_ = v.BindPFlag("log.debug", f)
	}
}

// CatalogPath returns the catalog database location.
func (s *Settings) CatalogPath() (string, error) {
	if s.Config.Storage.SQLitePath == "" {
		return filepath.Join(s.DotDir, catalogFile), nil
	}
	return config.ExpandHome(s.Config.Storage.SQLitePath)
}

// NewLogger returns the pretty stderr logger used by interactive commands.
func (s *Settings) NewLogger() *slog.Logger {
	return logger.New(
		logger.WithDebug(s.Config.Log.Debug),
		logger.WithPretty(true),
	)
}

// FileLogger opens <dotdir>/name for appending and returns a JSON debug
// logger over it, with call sites. In non-debug mode it returns a Nop
// logger and touches nothing.
func (s *Settings) FileLogger(name string) (*slog.Logger, func() error, error) {
	if !s.Config.Log.Debug {
		return logger.Nop(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(s.DotDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", s.DotDir, err)
	}
	f, err := os.OpenFile(filepath.Join(s.DotDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithSource(true),
		logger.WithWriter(f),
	), f.Close, nil
}

// NewServiceLogger is NewLogger for long-running commands: in debug mode
// every record is also kept as JSON in <dotdir>/name. A log file that
// cannot be opened is reported on stderr and otherwise ignored.
func (s *Settings) NewServiceLogger(name string) (*slog.Logger, func() error) {
	console := s.NewLogger()

	file, closeFile, err := s.FileLogger(name)
	if err != nil {
		console.Warn("debug log file disabled", "error", err)
		return console, func() error { return nil }
	}

	return logger.Multi(console, file), closeFile
}

// App holds the long-lived collaborators of a command.
type App struct {
	Settings  *Settings
	Logger    *slog.Logger
	Catalog   *catalog.Store
	Sessions  *chatstore.Store
	Resolver  *workspace.Resolver
	Runner    agent.Runner
	Publisher eventstream.Publisher
}

// Open opens the catalog and builds the collaborators around it. The
// resolver is seeded with the mappings persisted by earlier runs.
func Open(ctx context.Context, s *Settings, logger *slog.Logger) (*App, error) {
	cfg := s.Config

	cursorHome, err := cfg.CursorHome()
	if err != nil {
		return nil, err
	}

	dbPath, err := s.CatalogPath()
	if err != nil {
		return nil, err
	}

	store, err := catalog.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", dbPath, err)
	}

	seed, err := store.Mappings(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("loading workspace mappings: %w", err)
	}

	runner, err := agent.NewCommandRunner(
		cfg.Agent.Command,
		time.Duration(cfg.Summarizer.TimeoutSeconds)*time.Second,
		logger,
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	publisher, err := NewPublisher(cfg.Events, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Debug("runtime ready",
		"catalog", dbPath,
		"cursor_home", cursorHome,
		"known_workspaces", len(seed),
	)

	return &App{
		Settings:  s,
		Logger:    logger,
		Catalog:   store,
		Sessions:  chatstore.NewStore(filepath.Join(cursorHome, "chats")),
		Resolver:  workspace.NewResolver(filepath.Join(cursorHome, "projects"), seed, logger),
		Runner:    runner,
		Publisher: publisher,
	}, nil
}

// Pipeline returns the summarization pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	summarizer := agent.NewSummarizer(a.Runner, a.Settings.Config.Summarizer.Model, int(a.Settings.Config.Summarizer.MaxWords))
	return pipeline.New(a.Resolver, a.Catalog, summarizer, a.Publisher, a.Logger)
}

// AgentRanker returns the ranker used by smart search.
func (a *App) AgentRanker() *agent.Ranker {
	return agent.NewRanker(a.Runner, a.Settings.Config.Search.Model)
}

// Engine returns a search engine over the catalog.
func (a *App) Engine() *search.Engine {
	return search.NewEngine(a.Catalog, a.Logger)
}

// SaveMappings persists every workspace the resolver discovered so later
// invocations skip the registry scan.
func (a *App) SaveMappings(ctx context.Context) error {
	discovered := a.Resolver.Discovered()
	if len(discovered) == 0 {
		return nil
	}
	return a.Catalog.SaveMappings(ctx, discovered)
}

// Close flushes mappings and releases the catalog and publisher.
func (a *App) Close() error {
	var errs []error
	if err := a.SaveMappings(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("saving workspace mappings: %w", err))
	}
	if err := a.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing publisher: %w", err))
	}
	if err := a.Catalog.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing catalog: %w", err))
	}
	return errors.Join(errs...)
}

// Width returns the terminal width to render for.
func Width() int {
	return terminalWidth(os.Stdout)
}
