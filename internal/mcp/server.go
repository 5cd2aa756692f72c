package mcp

import (
	"context"
	"fmt"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tomorrownow/PyFCM/internal/config"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/logging"
	"github.com/tomorrownow/PyFCM/internal/pathutil"
	"github.com/tomorrownow/PyFCM/internal/ratelimit"
)

// Server wraps the MCP SDK server and exposes the inference engine as tools.
type Server struct {
	server       *sdk.Server
	root         string
	dataDirs     []string
	defaults     *config.FCMConfig
	observer     fcm.Observer
	runs         *logging.RunLogger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "fcm")
	Version string // Server version
	Root    string // Directory map files are resolved against

	// Defaults supplies engine settings a tool call leaves unset.
	// Nil means config.Default().
	Defaults *config.FCMConfig

	// Observer is attached to every engine the server builds. May be nil.
	Observer fcm.Observer

	// Runs receives one "mcp_call" event per tool call. The server closes
	// it on Close. May be nil.
	Runs *logging.RunLogger
}

// NewServer creates a new MCP server with the fcm tools registered.
func NewServer(cfg *Config) (*Server, error) {
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = config.Default()
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid defaults: %w", err)
	}

	dataDirs, err := pathutil.DefaultDataDirs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directories: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:       mcpServer,
		root:         cfg.Root,
		dataDirs:     dataDirs,
		defaults:     defaults,
		observer:     cfg.Observer,
		runs:         cfg.Runs,
		toolLimiters: ratelimit.NewToolLimiters(),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := s.registerResources(); err != nil {
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.runs.Close()

	return err
}

// Close releases the run log.
func (s *Server) Close() error {
	s.runs.Close()
	return nil
}
