// Package mcp exposes glyphgate over the Model Context Protocol on stdio.
package mcp

import (
	"context"
	"fmt"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/glyphgate/internal/config"
	"github.com/ppiankov/glyphgate/internal/pipeline"
)

// Config holds MCP server configuration.
type Config struct {
	// ConfigPath is the glyphgate config file. Empty selects the default
	// location. When the file exists it is watched for changes.
	ConfigPath string

	// AuditLogPath overrides audit.path from the config file.
	AuditLogPath string

	Version string
	Logger  *zap.Logger
}

// Server wraps the MCP SDK server around a planning pipeline.
type Server struct {
	mcpServer  *mcpsdk.Server
	pipeline   *pipeline.Pipeline
	sink       *pipeline.DecisionSink
	configPath string
	logger     *zap.Logger
}

// New loads configuration, opens the decision sink and registers tools.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	path := cfg.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	gcfg, hash, err := config.LoadConfigWithHash(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.AuditLogPath != "" {
		gcfg.Audit.Path = cfg.AuditLogPath
	}

	sink, err := pipeline.OpenSink(gcfg.Audit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	p, err := pipeline.FromConfig(gcfg, hash, sink, logger)
	if err != nil {
		sink.Close()
		return nil, err
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		pipeline:   p,
		sink:       sink,
		configPath: path,
		logger:     logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "glyphgate",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport and hot-reloads the config
// file when it exists. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	if _, err := os.Stat(s.configPath); err == nil {
		r, err := pipeline.NewReloader(s.pipeline, s.configPath, s.logger)
		if err != nil {
			return err
		}
		go func() {
			defer close(done)
			r.Run(ctx)
		}()
	} else {
		close(done)
	}

	err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
	cancel()
	<-done
	return err
}

// Close drains the decision sink and closes the audit log.
func (s *Server) Close() error {
	return s.sink.Close()
}

// registerTools adds all glyphgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "glyphgate_compile",
		Description: "Compile a TOML or YAML playbook and return its steps in dependency order. Invalid playbooks return an error with the reason.",
	}, s.handleCompile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "glyphgate_route",
		Description: "Route a private-use symbol (U+E100 or \\u{E100}) to its handler and record an execution context.",
	}, s.handleRoute)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "glyphgate_symbols",
		Description: "Look up operation symbol bindings by name or by symbol. With no arguments, list every binding and band.",
	}, s.handleSymbols)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "glyphgate_plan",
		Description: "Compile a playbook, then route and gate every step in dependency order.",
	}, s.handlePlan)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "glyphgate_stats",
		Description: "Return router usage statistics, optionally running a priority optimization pass first.",
	}, s.handleStats)
}
