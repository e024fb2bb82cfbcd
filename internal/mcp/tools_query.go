package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/neobridge/internal/history"
	"github.com/mvp-joe/neobridge/internal/protocol"
)

const defaultHistoryLimit = 20

// AddInfoTool registers neo4j_info.
func AddInfoTool(s *server.MCPServer, db Database, metrics *ToolMetrics) {
	tool := mcp.NewTool(
		"neo4j_info",
		mcp.WithDescription("Describe the connected Neo4j database and the capabilities of this server."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, instrument("neo4j_info", metrics, createInfoHandler(db, metrics)))
}

func createInfoHandler(db Database, metrics *ToolMetrics) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		serverInfo, err := db.ServerInfo(ctx)
		if err != nil {
			return marshalToolError(errorEnvelope{Error: protocol.Body(protocol.Wrap(protocol.CodeNeo4j, err), protocol.CodeNeo4j)})
		}
		info := protocol.NewInfo(serverInfo)
		if metrics != nil {
			info.Stats = metrics.GetMetrics()
		}
		return marshalToolResponse(info)
	}
}

// AddQueryTool registers neo4j_query.
func AddQueryTool(s *server.MCPServer, queries QueryService, metrics *ToolMetrics) {
	tool := mcp.NewTool(
		"neo4j_query",
		mcp.WithDescription("Run a Cypher query and return every row. Nodes, relationships and paths are returned as tagged objects (__type)."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Cypher query text, e.g. 'MATCH (p:Person) RETURN p LIMIT 10'")),
		mcp.WithObject("params",
			mcp.Description("Query parameters referenced as $name in the query")),
	)
	s.AddTool(tool, instrument("neo4j_query", metrics, createQueryHandler(queries)))
}

func createQueryHandler(queries QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args QueryArgs
		if res := bindArgs(request, &args); res != nil {
			return res, nil
		}
		result, err := queries.Execute(ctx, args.Query, args.Params)
		if err != nil {
			return marshalToolError(protocol.NewQueryFailure(err, ""))
		}
		return marshalToolResponse(result)
	}
}

// AddCursorQueryTool registers neo4j_cursor_query.
func AddCursorQueryTool(s *server.MCPServer, queries QueryService, metrics *ToolMetrics) {
	tool := mcp.NewTool(
		"neo4j_cursor_query",
		mcp.WithDescription("Run one page of a Cypher query. LIMIT and SKIP are appended to the query; metadata.hasMore is true when the page came back full. Fetch the next page by adding limit to offset."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Cypher query text without a trailing LIMIT or SKIP")),
		mcp.WithObject("params",
			mcp.Description("Query parameters referenced as $name in the query")),
		mcp.WithNumber("limit",
			mcp.Description("Page size (at least 1)")),
		mcp.WithNumber("offset",
			mcp.Description("Rows to skip (default: 0)")),
		mcp.WithBoolean("include_total",
			mcp.Description("Also count the unpaginated result and report metadata.totalCount. Read queries only: the query is re-run in read mode to count, so write statements are rejected")),
	)
	s.AddTool(tool, instrument("neo4j_cursor_query", metrics, createCursorQueryHandler(queries)))
}

func createCursorQueryHandler(queries QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args CursorQueryArgs
		if res := bindArgs(request, &args); res != nil {
			return res, nil
		}
		opts := protocol.CursorOptions{
			Limit:        args.Limit,
			Offset:       args.Offset,
			IncludeTotal: args.IncludeTotal,
		}
		result, err := queries.ExecutePaginated(ctx, args.Query, args.Params, opts)
		if err != nil {
			return marshalToolError(protocol.NewQueryFailure(err, ""))
		}
		return marshalToolResponse(result)
	}
}

// HistoryResponse is returned by neo4j_query_history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Total   int             `json:"total"`
}

// AddQueryHistoryTool registers neo4j_query_history.
func AddQueryHistoryTool(s *server.MCPServer, store HistoryReader, metrics *ToolMetrics) {
	tool := mcp.NewTool(
		"neo4j_query_history",
		mcp.WithDescription("List recently executed queries, newest first, with duration, row count and error code."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (1-500, default: 20)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, instrument("neo4j_query_history", metrics, createQueryHistoryHandler(store)))
}

func createQueryHistoryHandler(store HistoryReader) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args HistoryArgs
		if res := bindArgs(request, &args); res != nil {
			return res, nil
		}
		if args.Limit == 0 {
			args.Limit = defaultHistoryLimit
		}
		entries, err := store.Recent(ctx, args.Limit)
		if err != nil {
			return nil, err
		}
		return marshalToolResponse(HistoryResponse{Entries: entries, Total: len(entries)})
	}
}
