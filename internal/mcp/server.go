// Package mcp provides an MCP (Model Context Protocol) server for the catalog.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"cantina/internal/config"
	"cantina/internal/ratelimit"
	"cantina/internal/store"
	"cantina/internal/suggest"
)

// Server wraps the MCP SDK server around an open catalog store. All tools
// are read-only; edits go through the CLI.
type Server struct {
	server       *sdk.Server
	store        *store.Store
	cfg          *config.Config
	engine       *suggest.Engine
	root         string
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g. "cantina")
	Version string // Server version
	Root    string // Catalog root directory
}

// NewServer creates an MCP server exposing the catalog under cfg.Root.
func NewServer(cfg *Config) (*Server, error) {
	appCfg, err := config.Load(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(appCfg, cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve.
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        st,
		cfg:          appCfg,
		engine:       suggest.NewEngine(appCfg.Schema(), appCfg.Suggest.Limit, appCfg.Suggest.MinScore),
		root:         cfg.Root,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.Root),
	}

	if err := s.registerTools(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := s.registerResources(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// openStore opens the catalog database, honoring a configured path override.
func openStore(cfg *config.Config, root string) (*store.Store, error) {
	if cfg.Store.Path != "" {
		return store.OpenAt(cfg.Store.Path, cfg.Schema())
	}
	return store.Open(root, cfg.Schema())
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close closes the store and the audit log. Safe to call more than once.
func (s *Server) Close() error {
	err := s.store.Close()
	if aerr := s.auditLogger.Close(); aerr != nil && err == nil {
		err = aerr
	}
	return err
}
