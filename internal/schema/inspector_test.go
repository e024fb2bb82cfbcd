package schema

// Test Plan:
// - Inspect builds node and relationship schemas from one sample each
// - Connected labels are unions of sampled endpoint labels, sorted
// - Relationship types with no sample report empty properties and [[],[]] connects
// - Labels with spaces are backtick-quoted in sampling queries
// - Exclude patterns drop matching labels and types without querying them
// - Catalog failures surface as SCHEMA_ERROR; the failure envelope carries an empty schema
// - Caching returns the same descriptor until invalidated or reconfigured
// - Invalid exclude patterns are rejected

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/protocol"
)

// socialGraph answers sampling queries for Person/Product nodes and
// KNOWS/BOUGHT/LIKES relationships. LIKES has no instances.
func socialGraph() *graphdb.MockDatabase {
	return &graphdb.MockDatabase{
		LabelNames:            []string{"Person", "Product"},
		RelationshipTypeNames: []string{"KNOWS", "BOUGHT", "LIKES"},
		RunFunc: func(ctx context.Context, cypher string, params map[string]any) (*graphdb.Records, error) {
			switch {
			case cypher == "MATCH (n:`Person`) RETURN n LIMIT 1":
				return graphdb.NewRecords([]string{"n"}, []any{dbtype.Node{
					Labels: []string{"Person"},
					Props:  map[string]any{"name": "Alice", "age": int64(30)},
				}}), nil
			case cypher == "MATCH (n:`Product`) RETURN n LIMIT 1":
				return graphdb.NewRecords([]string{"n"}, []any{dbtype.Node{
					Labels: []string{"Product"},
					Props:  map[string]any{"title": "Book", "price": 9.5},
				}}), nil
			case cypher == "MATCH ()-[r:`KNOWS`]->() RETURN r LIMIT 1":
				return graphdb.NewRecords([]string{"r"}, []any{dbtype.Relationship{
					Type:  "KNOWS",
					Props: map[string]any{"since": int64(2020)},
				}}), nil
			case cypher == "MATCH ()-[r:`BOUGHT`]->() RETURN r LIMIT 1":
				return graphdb.NewRecords([]string{"r"}, []any{dbtype.Relationship{Type: "BOUGHT"}}), nil
			case strings.HasPrefix(cypher, "MATCH (a)-[r:`KNOWS`]->(b)"):
				return graphdb.NewRecords([]string{"from_labels", "to_labels"},
					[]any{[]any{"Person"}, []any{"Person"}},
					[]any{[]any{"Person", "Admin"}, []any{"Person"}},
				), nil
			case strings.HasPrefix(cypher, "MATCH (a)-[r:`BOUGHT`]->(b)"):
				return graphdb.NewRecords([]string{"from_labels", "to_labels"},
					[]any{[]any{"Person"}, []any{"Product"}},
				), nil
			}
			return &graphdb.Records{}, nil
		},
	}
}

func TestInspect_SocialGraph(t *testing.T) {
	t.Parallel()

	db := socialGraph()
	inspector, err := NewInspector(db, DefaultOptions(), nil)
	require.NoError(t, err)

	d, err := inspector.Inspect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Person", "Product"}, d.Labels())
	assert.Equal(t, map[string]string{"name": "String", "age": "Integer"}, d.NodeProperties("Person"))
	assert.Equal(t, map[string]string{"title": "String", "price": "Float"}, d.NodeProperties("Product"))

	assert.Equal(t, []string{"BOUGHT", "KNOWS", "LIKES"}, d.RelationshipTypes())
	assert.Equal(t, map[string]string{"since": "Integer"}, d.RelationshipProperties("KNOWS"))
	from, to := d.ConnectedLabels("KNOWS")
	assert.Equal(t, []string{"Admin", "Person"}, from)
	assert.Equal(t, []string{"Person"}, to)

	from, to = d.ConnectedLabels("BOUGHT")
	assert.Equal(t, []string{"Person"}, from)
	assert.Equal(t, []string{"Product"}, to)
	assert.Empty(t, d.RelationshipProperties("BOUGHT"))

	// LIKES has no instances: no connects sampling, empty endpoints
	assert.Empty(t, d.RelationshipProperties("LIKES"))
	from, to = d.ConnectedLabels("LIKES")
	assert.Empty(t, from)
	assert.Empty(t, to)
	for _, call := range db.Calls() {
		assert.False(t, strings.HasPrefix(call.Cypher, "MATCH (a)-[r:`LIKES`]"), "connects sampled for empty type")
	}

	for _, call := range db.Calls() {
		if strings.HasPrefix(call.Cypher, "MATCH (a)") {
			assert.Equal(t, 5, call.Params["samples"])
		}
	}
}

func TestInspect_ResponseEnvelope(t *testing.T) {
	t.Parallel()

	inspector, err := NewInspector(socialGraph(), DefaultOptions(), nil)
	require.NoError(t, err)
	d, err := inspector.Inspect(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(NewResponse(d, nil))
	require.NoError(t, err)

	var decoded struct {
		Schema struct {
			Relationships map[string]struct {
				Connects [][]string `json:"connects"`
			} `json:"relationships"`
		} `json:"schema"`
		Metadata map[string]int `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Metadata["node_label_count"])
	assert.Equal(t, 3, decoded.Metadata["relationship_type_count"])
	assert.Equal(t, [][]string{{}, {}}, decoded.Schema.Relationships["LIKES"].Connects)
	assert.NotContains(t, string(data), `"error"`)
}

func TestInspect_EmptyDatabase(t *testing.T) {
	t.Parallel()

	inspector, err := NewInspector(&graphdb.MockDatabase{}, DefaultOptions(), nil)
	require.NoError(t, err)
	d, err := inspector.Inspect(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(NewResponse(d, nil))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"schema":{"nodes":{},"relationships":{}},"metadata":{"node_label_count":0,"relationship_type_count":0}}`,
		string(data))
}

func TestInspect_QuotesLabels(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{LabelNames: []string{"Has Space"}}
	inspector, err := NewInspector(db, DefaultOptions(), nil)
	require.NoError(t, err)

	d, err := inspector.Inspect(context.Background())
	require.NoError(t, err)
	assert.Contains(t, d.Nodes, "Has Space")
	assert.Empty(t, d.NodeProperties("Has Space"))

	calls := db.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "MATCH (n:`Has Space`) RETURN n LIMIT 1", calls[0].Cypher)
}

func TestInspect_Excludes(t *testing.T) {
	t.Parallel()

	db := socialGraph()
	db.LabelNames = append(db.LabelNames, "_Bloom_Perspective")
	inspector, err := NewInspector(db, Options{
		ExcludeLabels:            []string{"_Bloom*", "Product"},
		ExcludeRelationshipTypes: []string{"LIK?S"},
	}, nil)
	require.NoError(t, err)

	d, err := inspector.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Person"}, d.Labels())
	assert.Equal(t, []string{"BOUGHT", "KNOWS"}, d.RelationshipTypes())

	for _, call := range db.Calls() {
		assert.NotContains(t, call.Cypher, "_Bloom")
		assert.NotContains(t, call.Cypher, "LIKES")
	}
}

func TestInspect_CatalogFailure(t *testing.T) {
	t.Parallel()

	inspector, err := NewInspector(&graphdb.MockDatabase{CatalogErr: errors.New("connection refused")}, DefaultOptions(), nil)
	require.NoError(t, err)

	d, err := inspector.Inspect(context.Background())
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Equal(t, protocol.CodeSchema, protocol.CodeOf(err, ""))

	data, err := json.Marshal(NewResponse(nil, err))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"schema":{"nodes":{},"relationships":{}},"metadata":{},"error":{"message":"connection refused","code":"SCHEMA_ERROR"}}`,
		string(data))
}

func TestInspect_SamplingFailure(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{
		LabelNames: []string{"Person"},
		RunFunc: func(ctx context.Context, cypher string, params map[string]any) (*graphdb.Records, error) {
			return nil, errors.New("timeout")
		},
	}
	inspector, err := NewInspector(db, DefaultOptions(), nil)
	require.NoError(t, err)

	_, err = inspector.Inspect(context.Background())
	assert.Equal(t, protocol.CodeSchema, protocol.CodeOf(err, ""))
}

func TestInspect_Cache(t *testing.T) {
	t.Parallel()

	db := socialGraph()
	inspector, err := NewInspector(db, Options{CacheTTL: time.Hour}, nil)
	require.NoError(t, err)
	defer inspector.Close()

	ctx := context.Background()
	first, err := inspector.Inspect(ctx)
	require.NoError(t, err)
	calls := len(db.Calls())

	second, err := inspector.Inspect(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, db.Calls(), calls, "cached descriptor must not query the database")

	inspector.Invalidate()
	third, err := inspector.Inspect(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Len(t, db.Calls(), 2*calls)

	require.NoError(t, inspector.Configure(Options{CacheTTL: time.Hour, ExcludeLabels: []string{"Product"}}))
	fourth, err := inspector.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Person"}, fourth.Labels())
}

func TestNewInspector_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewInspector(&graphdb.MockDatabase{}, Options{ExcludeLabels: []string{"[unclosed"}}, nil)
	assert.Error(t, err)
}
