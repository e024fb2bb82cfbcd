package cli

// Test Plan for query rendering:
// - parseParams decodes JSON values, keeps bare strings and rejects malformed pairs
// - Whole numbers become int64, fractions float64, nested values included
// - renderResult prints a table with sorted columns and a summary line
// - Empty results print only the summary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/neobridge/internal/format"
	"github.com/mvp-joe/neobridge/internal/protocol"
)

func TestParseParams(t *testing.T) {
	t.Parallel()

	params, err := parseParams([]string{
		"name=Alice",
		"age=30",
		"score=4.5",
		"active=true",
		`tags=["a", 2]`,
		`meta={"n": 1}`,
		"quoted=\"42\"",
		"eq=a=b",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"name":   "Alice",
		"age":    int64(30),
		"score":  4.5,
		"active": true,
		"tags":   []any{"a", int64(2)},
		"meta":   map[string]any{"n": int64(1)},
		"quoted": "42",
		"eq":     "a=b",
	}, params)
}

func TestParseParams_Invalid(t *testing.T) {
	t.Parallel()

	for _, pair := range []string{"novalue", "=1"} {
		_, err := parseParams([]string{pair})
		assert.Error(t, err, pair)
	}
}

func TestRenderResult(t *testing.T) {
	t.Parallel()

	total := 42
	result := &protocol.Result{
		Rows: []format.Row{
			{"name": "Alice", "age": int64(30)},
			{"name": "Bob", "tags": []any{"x"}},
		},
		Metadata: protocol.Metadata{
			RowCount:    2,
			QueryTimeMs: 7,
			HasMore:     true,
			TotalCount:  &total,
			Counters:    map[string]int{"nodesCreated": 1, "propertiesSet": 2},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, result))
	out := buf.String()

	assert.Contains(t, out, "age")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, `["x"]`)
	assert.Contains(t, out, "null")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("age")), bytes.Index(buf.Bytes(), []byte("name")))
	assert.Contains(t, out, "2 row(s) in 7ms, more available, 42 total, nodesCreated: 1, propertiesSet: 2\n")
}

func TestRenderResult_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, &protocol.Result{Rows: []format.Row{}}))
	assert.Equal(t, "0 row(s) in 0ms\n", buf.String())
}

func TestCell(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "null", cell(nil))
	assert.Equal(t, "text", cell("text"))
	assert.Equal(t, "3", cell(int64(3)))
	assert.Equal(t, `{"a":1}`, cell(map[string]any{"a": 1}))
}
