package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/neobridge/internal/protocol"
)

// AddTransactionTools registers the four transaction tools. A transaction
// stays open across tool calls until it is committed or rolled back.
func AddTransactionTools(s *server.MCPServer, txs TransactionService, metrics *ToolMetrics) {
	s.AddTool(mcp.NewTool(
		"neo4j_begin_transaction",
		mcp.WithDescription("Open a transaction and return its transaction_id. Queries run with neo4j_query_in_transaction are not visible to others until neo4j_commit_transaction."),
	), instrument("neo4j_begin_transaction", metrics, createBeginHandler(txs)))

	s.AddTool(mcp.NewTool(
		"neo4j_commit_transaction",
		mcp.WithDescription("Commit an open transaction. The transaction_id is invalid afterwards, whether or not the commit succeeded."),
		mcp.WithString("transaction_id",
			mcp.Required(),
			mcp.Description("Handle returned by neo4j_begin_transaction")),
	), instrument("neo4j_commit_transaction", metrics, createCommitHandler(txs)))

	s.AddTool(mcp.NewTool(
		"neo4j_rollback_transaction",
		mcp.WithDescription("Roll back an open transaction, discarding its changes. The transaction_id is invalid afterwards."),
		mcp.WithString("transaction_id",
			mcp.Required(),
			mcp.Description("Handle returned by neo4j_begin_transaction")),
	), instrument("neo4j_rollback_transaction", metrics, createRollbackHandler(txs)))

	s.AddTool(mcp.NewTool(
		"neo4j_query_in_transaction",
		mcp.WithDescription("Run a Cypher query inside an open transaction. A failed query leaves the transaction open; roll it back explicitly."),
		mcp.WithString("transaction_id",
			mcp.Required(),
			mcp.Description("Handle returned by neo4j_begin_transaction")),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Cypher query text")),
		mcp.WithObject("params",
			mcp.Description("Query parameters referenced as $name in the query")),
	), instrument("neo4j_query_in_transaction", metrics, createTransactionQueryHandler(txs)))
}

func createBeginHandler(txs TransactionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := txs.Begin(ctx)
		env := protocol.NewTransactionEnvelope(id, protocol.StatusActive, err, protocol.CodeTransaction)
		if err != nil {
			return marshalToolError(env)
		}
		return marshalToolResponse(env)
	}
}

func createCommitHandler(txs TransactionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args TransactionArgs
		if res := bindArgs(request, &args); res != nil {
			return res, nil
		}
		err := txs.Commit(ctx, args.TransactionID)
		env := protocol.NewTransactionEnvelope(args.TransactionID, protocol.StatusCommitted, err, protocol.CodeCommit)
		if err != nil {
			return marshalToolError(env)
		}
		return marshalToolResponse(env)
	}
}

func createRollbackHandler(txs TransactionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args TransactionArgs
		if res := bindArgs(request, &args); res != nil {
			return res, nil
		}
		err := txs.Rollback(ctx, args.TransactionID)
		env := protocol.NewTransactionEnvelope(args.TransactionID, protocol.StatusRolledBack, err, protocol.CodeRollback)
		if err != nil {
			return marshalToolError(env)
		}
		return marshalToolResponse(env)
	}
}

func createTransactionQueryHandler(txs TransactionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args TransactionQueryArgs
		if res := bindArgs(request, &args); res != nil {
			return res, nil
		}
		result, err := txs.Query(ctx, args.TransactionID, args.Query, args.Params)
		if err != nil {
			return marshalToolError(protocol.NewQueryFailure(err, args.TransactionID))
		}
		return marshalToolResponse(result)
	}
}
