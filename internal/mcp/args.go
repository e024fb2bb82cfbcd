package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	mcputils "github.com/mvp-joe/neobridge/internal/mcp-utils"
)

// QueryArgs are the arguments of neo4j_query.
type QueryArgs struct {
	Query  string         `json:"query" validate:"required"`
	Params map[string]any `json:"params"`
}

// CursorQueryArgs are the arguments of neo4j_cursor_query.
type CursorQueryArgs struct {
	Query        string         `json:"query" validate:"required"`
	Params       map[string]any `json:"params"`
	Limit        *int           `json:"limit" validate:"omitempty,min=1"`
	Offset       *int           `json:"offset" validate:"omitempty,min=0"`
	IncludeTotal bool           `json:"include_total"`
}

// TransactionArgs identify an open transaction.
type TransactionArgs struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

// TransactionQueryArgs are the arguments of neo4j_query_in_transaction.
type TransactionQueryArgs struct {
	TransactionID string         `json:"transaction_id" validate:"required"`
	Query         string         `json:"query" validate:"required"`
	Params        map[string]any `json:"params"`
}

// SchemaPathArgs are the arguments of neo4j_schema_path.
type SchemaPathArgs struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// HistoryArgs are the arguments of neo4j_query_history.
type HistoryArgs struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=500"`
}

// bindArgs binds request arguments into target. On failure it returns the
// error result to send back to the client.
func bindArgs[T any](request mcp.CallToolRequest, target *T) *mcp.CallToolResult {
	if _, ok := request.GetRawArguments().(map[string]any); !ok && request.GetRawArguments() != nil {
		return mcp.NewToolResultError("invalid arguments format")
	}
	if err := mcputils.Bind(request, target); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err))
	}
	return nil
}
