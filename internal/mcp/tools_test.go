package mcp

// Test Plan for tools:
// - neo4j_query returns the result envelope; driver failures are IsError with the failure envelope
// - Arguments sent as strings are coerced (params object, limit, include_total)
// - Missing required arguments are reported as tool errors
// - neo4j_cursor_query pages and reports hasMore/totalCount
// - Transaction tools: begin, query (counters), commit, then INVALID_TRANSACTION
// - Unknown handle "xyz" returns INVALID_TRANSACTION with rows [] and the handle echoed
// - neo4j_schema lists empty labels; failures return the empty-schema envelope
// - neo4j_schema_path returns hops and NOT_FOUND for unknown labels
// - neo4j_info reports capabilities and tool stats
// - neo4j_query_history lists entries with the default limit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/history"
	"github.com/mvp-joe/neobridge/internal/query"
	"github.com/mvp-joe/neobridge/internal/schema"
	"github.com/mvp-joe/neobridge/internal/txn"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

// decode returns the JSON body of a tool result.
func decode(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent.Text), &out), textContent.Text)
	return out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error object in %v", body)
	code, _ := errBody["code"].(string)
	return code
}

func TestQueryHandler(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{
		RunFunc: func(ctx context.Context, cypher string, params map[string]any) (*graphdb.Records, error) {
			if cypher == "BROKEN" {
				return nil, errors.New("Invalid input")
			}
			return graphdb.NewRecords([]string{"p"}, []any{dbtype.Node{Id: 3, Labels: []string{"Person"}, Props: map[string]any{"name": "Alice"}}}), nil
		},
	}
	handler := createQueryHandler(query.NewExecutor(db))
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		result, err := handler(ctx, callRequest(map[string]any{
			"query":  "MATCH (p:Person {name: $name}) RETURN p",
			"params": `{"name": "Alice", "age": 30}`,
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		body := decode(t, result)
		rows := body["rows"].([]any)
		require.Len(t, rows, 1)
		node := rows[0].(map[string]any)["p"].(map[string]any)
		assert.Equal(t, "node", node["__type"])
		assert.Equal(t, []any{"Person"}, node["labels"])

		calls := db.Calls()
		assert.Equal(t, map[string]any{"name": "Alice", "age": int64(30)}, calls[len(calls)-1].Params)
	})

	t.Run("driver failure", func(t *testing.T) {
		result, err := handler(ctx, callRequest(map[string]any{"query": "BROKEN"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)

		body := decode(t, result)
		assert.Equal(t, "NEO4J_ERROR", errorCode(t, body))
		assert.Equal(t, []any{}, body["rows"])
		assert.Equal(t, map[string]any{"rowCount": float64(0)}, body["metadata"])
	})

	t.Run("missing query", func(t *testing.T) {
		result, err := handler(ctx, callRequest(map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result), "query parameter is required")
	})
}

func TestCursorQueryHandler(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{
		RunFunc: func(ctx context.Context, cypher string, params map[string]any) (*graphdb.Records, error) {
			if strings.Contains(cypher, "count(*)") {
				return graphdb.NewRecords([]string{"total"}, []any{int64(25)}), nil
			}
			records := &graphdb.Records{Keys: []string{"i"}}
			offset, _ := params["offset"].(int)
			limit, _ := params["limit"].(int)
			for i := offset; i < 25 && i < offset+limit; i++ {
				records.Values = append(records.Values, []any{int64(i)})
			}
			return records, nil
		},
	}
	handler := createCursorQueryHandler(query.NewExecutor(db))

	result, err := handler(context.Background(), callRequest(map[string]any{
		"query":         "UNWIND range(0, 24) AS i RETURN i",
		"limit":         "10",
		"offset":        float64(20),
		"include_total": "true",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(result))

	meta := decode(t, result)["metadata"].(map[string]any)
	assert.Equal(t, float64(5), meta["rowCount"])
	assert.Equal(t, false, meta["hasMore"])
	assert.Equal(t, float64(25), meta["totalCount"])

	result, err = handler(context.Background(), callRequest(map[string]any{"query": "RETURN 1", "limit": 0}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result), "limit must be at least 1")
}

func TestTransactionHandlers(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{
		RunFunc: func(ctx context.Context, cypher string, params map[string]any) (*graphdb.Records, error) {
			return &graphdb.Records{
				Keys:    []string{"n"},
				Values:  [][]any{{dbtype.Node{Labels: []string{"Person"}, Props: map[string]any{"name": "Alice"}}}},
				Summary: graphdb.Summary{Counters: map[string]int{"nodesCreated": 1}},
			}, nil
		},
	}
	registry := txn.NewRegistry(db)
	ctx := context.Background()

	result, err := createBeginHandler(registry)(ctx, callRequest(nil))
	require.NoError(t, err)
	body := decode(t, result)
	id, _ := body["transaction_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, map[string]any{"status": "active"}, body["metadata"])

	result, err = createTransactionQueryHandler(registry)(ctx, callRequest(map[string]any{
		"transaction_id": id,
		"query":          "CREATE (n:Person {name: 'Alice'}) RETURN n",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(result))
	meta := decode(t, result)["metadata"].(map[string]any)
	assert.Equal(t, map[string]any{"nodesCreated": float64(1)}, meta["counters"])
	assert.Equal(t, id, meta["transaction_id"])
	assert.Equal(t, "active", meta["status"])

	result, err = createCommitHandler(registry)(ctx, callRequest(map[string]any{"transaction_id": id}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, map[string]any{"status": "committed"}, decode(t, result)["metadata"])

	result, err = createTransactionQueryHandler(registry)(ctx, callRequest(map[string]any{"transaction_id": id, "query": "RETURN 1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "INVALID_TRANSACTION", errorCode(t, decode(t, result)))

	result, err = createRollbackHandler(registry)(ctx, callRequest(map[string]any{"transaction_id": id}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "INVALID_TRANSACTION", errorCode(t, decode(t, result)))
}

func TestTransactionQueryHandler_UnknownHandle(t *testing.T) {
	t.Parallel()

	handler := createTransactionQueryHandler(txn.NewRegistry(&graphdb.MockDatabase{}))
	result, err := handler(context.Background(), callRequest(map[string]any{"transaction_id": "xyz", "query": "RETURN 1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	body := decode(t, result)
	assert.Equal(t, "INVALID_TRANSACTION", errorCode(t, body))
	assert.Equal(t, []any{}, body["rows"])
	assert.Equal(t, "xyz", body["metadata"].(map[string]any)["transaction_id"])
}

func TestBeginHandler_Failure(t *testing.T) {
	t.Parallel()

	handler := createBeginHandler(txn.NewRegistry(&graphdb.MockDatabase{BeginErr: errors.New("unavailable")}))
	result, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "TRANSACTION_ERROR", errorCode(t, decode(t, result)))
}

func schemaDB() *graphdb.MockDatabase {
	return &graphdb.MockDatabase{
		LabelNames:            []string{"Person", "Product"},
		RelationshipTypeNames: []string{"BOUGHT"},
		RunFunc: func(ctx context.Context, cypher string, params map[string]any) (*graphdb.Records, error) {
			switch {
			case cypher == "MATCH ()-[r:`BOUGHT`]->() RETURN r LIMIT 1":
				return graphdb.NewRecords([]string{"r"}, []any{dbtype.Relationship{Type: "BOUGHT"}}), nil
			case strings.HasPrefix(cypher, "MATCH (a)-[r:`BOUGHT`]->(b)"):
				return graphdb.NewRecords([]string{"from_labels", "to_labels"}, []any{[]any{"Person"}, []any{"Product"}}), nil
			}
			return &graphdb.Records{}, nil
		},
	}
}

func newInspector(t *testing.T, db *graphdb.MockDatabase) *schema.Inspector {
	t.Helper()
	inspector, err := schema.NewInspector(db, schema.DefaultOptions(), nil)
	require.NoError(t, err)
	t.Cleanup(inspector.Close)
	return inspector
}

func TestSchemaHandler(t *testing.T) {
	t.Parallel()

	result, err := createSchemaHandler(newInspector(t, schemaDB()))(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	body := decode(t, result)
	nodes := body["schema"].(map[string]any)["nodes"].(map[string]any)
	assert.Equal(t, map[string]any{"properties": map[string]any{}}, nodes["Product"])
	assert.Equal(t, float64(2), body["metadata"].(map[string]any)["node_label_count"])

	failing := newInspector(t, &graphdb.MockDatabase{CatalogErr: errors.New("denied")})
	result, err = createSchemaHandler(failing)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	body = decode(t, result)
	assert.Equal(t, "SCHEMA_ERROR", errorCode(t, body))
	assert.Equal(t, map[string]any{}, body["metadata"])
}

func TestSchemaPathHandler(t *testing.T) {
	t.Parallel()

	handler := createSchemaPathHandler(newInspector(t, schemaDB()))
	ctx := context.Background()

	result, err := handler(ctx, callRequest(map[string]any{"from": "Person", "to": "Product"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(result))
	hops := decode(t, result)["hops"].([]any)
	require.Len(t, hops, 1)
	assert.Equal(t, "Product", hops[0].(map[string]any)["to"])

	result, err = handler(ctx, callRequest(map[string]any{"from": "Person", "to": "Ghost"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "NOT_FOUND", errorCode(t, decode(t, result)))

	result, err = handler(ctx, callRequest(map[string]any{"from": "Person"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result), "to parameter is required")
}

func TestInfoHandler(t *testing.T) {
	t.Parallel()

	metrics := NewToolMetrics()
	metrics.RecordCall("neo4j_query", time.Millisecond, "")
	db := &graphdb.MockDatabase{Info: graphdb.ServerInfo{Name: "Neo4j Kernel", Version: "5.20.0", Edition: "enterprise"}}

	result, err := createInfoHandler(db, metrics)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	body := decode(t, result)
	assert.Equal(t, "1.0", body["mcp_version"])
	assert.Equal(t, "enterprise", body["database"].(map[string]any)["info"].(map[string]any)["edition"])
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["total_calls"])

	result, err = createInfoHandler(&graphdb.MockDatabase{InfoErr: errors.New("no procedure")}, nil)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "NEO4J_ERROR", errorCode(t, decode(t, result)))
}

type fakeHistory struct {
	limit   int
	entries []history.Entry
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	f.limit = limit
	return f.entries, nil
}

func TestQueryHistoryHandler(t *testing.T) {
	t.Parallel()

	store := &fakeHistory{entries: []history.Entry{{ID: 2, Query: "RETURN 2"}, {ID: 1, Query: "RETURN 1"}}}
	handler := createQueryHistoryHandler(store)

	result, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	body := decode(t, result)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, defaultHistoryLimit, store.limit)

	_, err = handler(context.Background(), callRequest(map[string]any{"limit": "5"}))
	require.NoError(t, err)
	assert.Equal(t, 5, store.limit)
}
