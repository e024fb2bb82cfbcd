package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for Neo4j access",
	Long: `Start the Model Context Protocol (MCP) server that lets LLM assistants
query and explore the configured Neo4j database.

The MCP server:
- Provides neo4j_query, neo4j_cursor_query and the transaction tools
- Infers the graph schema via neo4j_schema and neo4j_schema_path
- Communicates via stdio (standard MCP transport)

Transactions left open when the client disconnects are rolled back.

Example:
  neobridge mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.Default()
	app, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(app)

	server, err := app.MCPServer()
	if err != nil {
		return err
	}
	watcher, err := app.Watcher(loader)
	if err != nil {
		logger.Warn("config file will not be watched", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The client closing stdin ends the session.
		defer cancel()
		return server.Serve(gctx)
	})
	g.Go(func() error { return app.Registry.Run(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	return g.Wait()
}
