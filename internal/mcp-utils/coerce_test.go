package mcputils

// Test Plan for Bind:
// - Native argument types bind directly, including float64 numbers
// - String-encoded numbers, booleans and objects are decoded
// - Whole numbers inside parameter maps become int64, fractions stay float64
// - Optional pointer fields stay nil when absent
// - Validation failures name the json field
// - Numbers converts json.Number and whole floats recursively

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest map[string]any

func (r fakeRequest) GetArguments() map[string]any { return r }

type pageArgs struct {
	Query        string         `json:"query" validate:"required"`
	Params       map[string]any `json:"params"`
	Limit        *int           `json:"limit" validate:"omitempty,min=1"`
	Offset       *int           `json:"offset" validate:"omitempty,min=0"`
	IncludeTotal bool           `json:"include_total"`
}

func TestBind_NativeTypes(t *testing.T) {
	t.Parallel()

	var args pageArgs
	err := Bind(fakeRequest{
		"query":         "MATCH (n) RETURN n",
		"params":        map[string]any{"name": "Alice", "age": float64(30), "score": 1.5},
		"limit":         float64(10),
		"include_total": true,
	}, &args)
	require.NoError(t, err)

	assert.Equal(t, "MATCH (n) RETURN n", args.Query)
	assert.Equal(t, map[string]any{"name": "Alice", "age": int64(30), "score": 1.5}, args.Params)
	require.NotNil(t, args.Limit)
	assert.Equal(t, 10, *args.Limit)
	assert.Nil(t, args.Offset)
	assert.True(t, args.IncludeTotal)
}

func TestBind_StringEncoded(t *testing.T) {
	t.Parallel()

	var args pageArgs
	err := Bind(fakeRequest{
		"query":         "RETURN $ids",
		"params":        `{"ids": [1, 2, 3], "nested": {"n": 4}, "ratio": 0.25}`,
		"limit":         "25",
		"offset":        "50",
		"include_total": "true",
	}, &args)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"ids":    []any{int64(1), int64(2), int64(3)},
		"nested": map[string]any{"n": int64(4)},
		"ratio":  0.25,
	}, args.Params)
	assert.Equal(t, 25, *args.Limit)
	assert.Equal(t, 50, *args.Offset)
	assert.True(t, args.IncludeTotal)
}

func TestBind_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args fakeRequest
		want string
	}{
		{"missing query", fakeRequest{}, "query parameter is required"},
		{"limit below one", fakeRequest{"query": "RETURN 1", "limit": 0}, "limit must be at least 1"},
		{"negative offset", fakeRequest{"query": "RETURN 1", "offset": "-5"}, "offset must be at least 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var args pageArgs
			err := Bind(tt.args, &args)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestBind_TypeMismatch(t *testing.T) {
	t.Parallel()

	var args pageArgs
	err := Bind(fakeRequest{"query": "RETURN 1", "limit": "ten"}, &args)
	assert.Error(t, err)
}

func TestNumbers(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"int":    json.Number("30"),
		"frac":   json.Number("4.5"),
		"big":    json.Number("9007199254740993"),
		"whole":  float64(12),
		"list":   []any{json.Number("1"), json.Number("2.5"), "x"},
		"nested": map[string]any{"k": json.Number("-7")},
		"text":   "10",
	}
	assert.Equal(t, map[string]any{
		"int":    int64(30),
		"frac":   4.5,
		"big":    int64(9007199254740993),
		"whole":  int64(12),
		"list":   []any{int64(1), 2.5, "x"},
		"nested": map[string]any{"k": int64(-7)},
		"text":   "10",
	}, Numbers(in))

	assert.Equal(t, 1.5, Numbers(1.5))
	assert.Nil(t, Numbers(nil))
}
