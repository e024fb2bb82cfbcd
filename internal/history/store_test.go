package history

// Test Plan:
// - Open creates the schema in an in-memory database and in a nested file path
// - Record stores all fields; Recent returns them newest first
// - Recent honors the limit and returns an empty slice for an empty log
// - Optional fields (params, code, transaction id) round-trip as empty when unset
// - CreateSchema is idempotent
// - JSON reports the duration in milliseconds

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	at := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, store.Record(ctx, Entry{
		At:       at,
		Query:    "MATCH (n) RETURN n",
		Params:   map[string]any{"limit": 10},
		Duration: 12 * time.Millisecond,
		RowCount: 3,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		At:            at.Add(time.Second),
		Query:         "CREATE (n)",
		Code:          "NEO4J_ERROR",
		TransactionID: "tx-1",
	}))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "CREATE (n)", entries[0].Query, "newest entry comes first")
	assert.Equal(t, "NEO4J_ERROR", entries[0].Code)
	assert.Equal(t, "tx-1", entries[0].TransactionID)
	assert.Nil(t, entries[0].Params)

	assert.Equal(t, "MATCH (n) RETURN n", entries[1].Query)
	assert.Equal(t, map[string]any{"limit": float64(10)}, entries[1].Params)
	assert.Equal(t, 12*time.Millisecond, entries[1].Duration)
	assert.Equal(t, 3, entries[1].RowCount)
	assert.Empty(t, entries[1].Code)
	assert.True(t, entries[1].At.Equal(at))
}

func TestStore_RecentLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Entry{Query: "RETURN 1"}))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Greater(t, entries[0].ID, entries[1].ID)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestStore_EmptyLog(t *testing.T) {
	t.Parallel()

	entries, err := newTestStore(t).Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), Entry{Query: "RETURN 1"}))
	assert.FileExists(t, path)
}

func TestCreateSchema_Idempotent(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, CreateSchema(db))
	require.NoError(t, CreateSchema(db))

	store := NewStoreWithDB(db)
	require.NoError(t, store.Record(context.Background(), Entry{Query: "RETURN 1"}))
	require.NoError(t, store.Close(), "closing a borrowed connection is a no-op")
	require.NoError(t, db.Ping())
}

func TestEntry_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Entry{ID: 7, Query: "RETURN 1", Duration: 1500 * time.Millisecond, RowCount: 1})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(1500), out["duration_ms"])
	assert.Equal(t, float64(7), out["id"])
	assert.Equal(t, "RETURN 1", out["query"])
	assert.NotContains(t, out, "Duration")
}
