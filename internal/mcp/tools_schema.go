package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/neobridge/internal/protocol"
	"github.com/mvp-joe/neobridge/internal/schema"
)

// AddSchemaTool registers neo4j_schema.
func AddSchemaTool(s *server.MCPServer, inspector SchemaService, metrics *ToolMetrics) {
	tool := mcp.NewTool(
		"neo4j_schema",
		mcp.WithDescription("Infer the graph schema: every node label and relationship type with property types, and the labels each relationship type connects. Inferred from samples, so rare properties may be missing."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, instrument("neo4j_schema", metrics, createSchemaHandler(inspector)))
}

func createSchemaHandler(inspector SchemaService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		d, err := inspector.Inspect(ctx)
		if err != nil {
			return marshalToolError(schema.NewResponse(nil, err))
		}
		return marshalToolResponse(schema.NewResponse(d, nil))
	}
}

// SchemaPathResponse is returned by neo4j_schema_path.
type SchemaPathResponse struct {
	From string       `json:"from"`
	To   string       `json:"to"`
	Hops []schema.Hop `json:"hops"`
}

// AddSchemaPathTool registers neo4j_schema_path.
func AddSchemaPathTool(s *server.MCPServer, inspector SchemaService, metrics *ToolMetrics) {
	tool := mcp.NewTool(
		"neo4j_schema_path",
		mcp.WithDescription("Find the shortest chain of relationship types leading from one node label to another. Useful for writing multi-hop MATCH patterns."),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Start label, e.g. 'Person'")),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Target label, e.g. 'Product'")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, instrument("neo4j_schema_path", metrics, createSchemaPathHandler(inspector)))
}

func createSchemaPathHandler(inspector SchemaService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SchemaPathArgs
		if res := bindArgs(request, &args); res != nil {
			return res, nil
		}
		d, err := inspector.Inspect(ctx)
		if err != nil {
			return marshalToolError(schema.NewResponse(nil, err))
		}
		hops, err := schema.Path(d, args.From, args.To)
		if err != nil {
			return marshalToolError(errorEnvelope{Error: protocol.Body(err, protocol.CodeSchema)})
		}
		return marshalToolResponse(SchemaPathResponse{From: args.From, To: args.To, Hops: hops})
	}
}
