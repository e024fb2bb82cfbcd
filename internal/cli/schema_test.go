package cli

// Test Plan for schema rendering:
// - renderSchema lists labels and relationship types with endpoints and properties
// - renderPath prints one bullet per hop; an empty path reports same labels
// - formatProperties sorts by name

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/neobridge/internal/schema"
)

func TestRenderSchema(t *testing.T) {
	t.Parallel()

	d := schema.NewDescriptor()
	d.Nodes["Person"] = schema.NodeSchema{Properties: map[string]string{"name": "String", "age": "Integer"}}
	d.Nodes["Movie"] = schema.NodeSchema{Properties: map[string]string{}}
	d.Relationships["ACTED_IN"] = schema.RelationshipSchema{
		Properties: map[string]string{"role": "String"},
		Connects:   schema.Connects{{"Person"}, {"Movie"}},
	}

	var buf bytes.Buffer
	require.NoError(t, renderSchema(&buf, d))
	out := buf.String()

	assert.Contains(t, out, "Label")
	assert.Contains(t, out, "age: Integer, name: String")
	assert.Contains(t, out, "ACTED_IN")
	assert.Contains(t, out, "role: String")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Movie")), bytes.Index(buf.Bytes(), []byte("Person")))
}

func TestRenderPath(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderPath(&buf, []schema.Hop{
		{From: "Person", To: "Movie", Types: []string{"ACTED_IN", "DIRECTED"}},
		{From: "Movie", To: "Genre", Types: []string{"IN_GENRE"}},
	}))
	assert.Contains(t, buf.String(), "(Person)-[:ACTED_IN|DIRECTED]->(Movie)")
	assert.Contains(t, buf.String(), "(Movie)-[:IN_GENRE]->(Genre)")

	buf.Reset()
	require.NoError(t, renderPath(&buf, nil))
	assert.Equal(t, "Start and end label are the same.\n", buf.String())
}

func TestFormatProperties(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", formatProperties(nil))
	assert.Equal(t, "a: Float, b: Boolean", formatProperties(map[string]string{"b": "Boolean", "a": "Float"}))
}
