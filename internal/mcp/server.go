// Package mcp exposes the access layer as Model Context Protocol tools over
// stdio.
package mcp

// Implementation Plan:
// 1. MCPServer struct holding the core components and tool metrics
// 2. NewMCPServer - registers every neo4j_* tool
// 3. Serve - runs the stdio transport until ctx is cancelled or a signal arrives
// 4. Close - rolls back transactions left open by the client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/history"
	"github.com/mvp-joe/neobridge/internal/protocol"
	"github.com/mvp-joe/neobridge/internal/schema"
)

// Database reports server identity.
type Database interface {
	ServerInfo(ctx context.Context) (graphdb.ServerInfo, error)
}

// QueryService runs standalone statements.
type QueryService interface {
	Execute(ctx context.Context, q string, params map[string]any) (*protocol.Result, error)
	ExecutePaginated(ctx context.Context, q string, params map[string]any, opts protocol.CursorOptions) (*protocol.Result, error)
}

// TransactionService manages client-held transactions.
type TransactionService interface {
	Begin(ctx context.Context) (string, error)
	Query(ctx context.Context, id, q string, params map[string]any) (*protocol.Result, error)
	Commit(ctx context.Context, id string) error
	Rollback(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// SchemaService infers the graph schema.
type SchemaService interface {
	Inspect(ctx context.Context) (*schema.Descriptor, error)
}

// HistoryReader lists recently executed queries.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Deps are the components the tools call. History is optional; without it
// neo4j_query_history is not registered.
type Deps struct {
	Database     Database
	Queries      QueryService
	Transactions TransactionService
	Schema       SchemaService
	History      HistoryReader
	Logger       *slog.Logger
}

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	deps    Deps
	logger  *slog.Logger
	metrics *ToolMetrics
	mcp     *server.MCPServer
}

// NewMCPServer creates a server with every tool registered.
func NewMCPServer(deps Deps, version string) (*MCPServer, error) {
	if deps.Database == nil || deps.Queries == nil || deps.Transactions == nil || deps.Schema == nil {
		return nil, errors.New("mcp: database, queries, transactions and schema are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &MCPServer{
		deps:    deps,
		logger:  logger,
		metrics: NewToolMetrics(),
		mcp: server.NewMCPServer(
			"neobridge",
			version,
			server.WithToolCapabilities(true),
		),
	}

	AddInfoTool(s.mcp, deps.Database, s.metrics)
	AddQueryTool(s.mcp, deps.Queries, s.metrics)
	AddCursorQueryTool(s.mcp, deps.Queries, s.metrics)
	AddSchemaTool(s.mcp, deps.Schema, s.metrics)
	AddSchemaPathTool(s.mcp, deps.Schema, s.metrics)
	AddTransactionTools(s.mcp, deps.Transactions, s.metrics)
	if deps.History != nil {
		AddQueryHistoryTool(s.mcp, deps.History, s.metrics)
	}

	return s, nil
}

// Metrics returns a snapshot of per-tool call statistics.
func (s *MCPServer) Metrics() MetricsSnapshot {
	return s.metrics.GetMetrics()
}

// Serve runs the stdio transport and blocks until ctx is cancelled, a
// SIGINT/SIGTERM arrives or stdin closes.
func (s *MCPServer) Serve(ctx context.Context) error {
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *MCPServer) serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("starting MCP server on stdio")
	err := stdio.Listen(ctx, stdin, stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("MCP server error: %w", err)
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// Close rolls back any transaction the client left open.
func (s *MCPServer) Close(ctx context.Context) error {
	return s.deps.Transactions.Close(ctx)
}
