package cli

// Test Plan for App:
// - newApp wires executor, registry, inspector and entity store on a database
// - History enabled opens the store and records executed queries
// - APIServer serves /health and honors required properties from config
// - MCPServer is created with and without history
// - Reload re-applies schema exclusions
// - Watcher is nil without a config file
// - Close rolls back open transactions and closes the database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/neobridge/internal/config"
	"github.com/mvp-joe/neobridge/internal/graphdb"
)

func newTestApp(t *testing.T, cfg *config.Config, db *graphdb.MockDatabase) *App {
	t.Helper()
	app, err := newApp(cfg, db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func TestNewApp(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{}
	app := newTestApp(t, config.Default(), db)

	assert.NotNil(t, app.Executor)
	assert.NotNil(t, app.Registry)
	assert.NotNil(t, app.Inspector)
	assert.NotNil(t, app.Entities)
	assert.Nil(t, app.History)

	_, err := app.Executor.Execute(context.Background(), "RETURN 1", nil)
	require.NoError(t, err)
	assert.Len(t, db.Calls(), 1)
}

func TestNewApp_History(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "nested", "history.db")

	app := newTestApp(t, cfg, &graphdb.MockDatabase{})
	require.NotNil(t, app.History)

	ctx := context.Background()
	_, err := app.Executor.Execute(ctx, "RETURN 1", nil)
	require.NoError(t, err)

	id, err := app.Registry.Begin(ctx)
	require.NoError(t, err)
	_, err = app.Registry.Query(ctx, id, "RETURN 2", nil)
	require.NoError(t, err)

	entries, err := app.History.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "RETURN 2", entries[0].Query)
	assert.Equal(t, id, entries[0].TransactionID)
}

func TestNewApp_InvalidSchemaPattern(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Schema.ExcludeLabels = []string{"["}
	_, err := newApp(cfg, &graphdb.MockDatabase{}, nil)
	require.Error(t, err)
}

func TestApp_APIServer(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Validation.Required = []config.RequiredProperties{{Label: "Movie", Properties: []string{"title"}}}
	app := newTestApp(t, cfg, &graphdb.MockDatabase{})

	srv, err := app.APIServer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/Movie", strings.NewReader(`{"released": 1999}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required")
}

func TestApp_MCPServer(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, config.Default(), &graphdb.MockDatabase{})
	srv, err := app.MCPServer()
	require.NoError(t, err)
	assert.NotNil(t, srv)

	cfg := config.Default()
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	withHistory := newTestApp(t, cfg, &graphdb.MockDatabase{})
	srv, err = withHistory.MCPServer()
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestApp_Reload(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{LabelNames: []string{"Person", "_Internal"}}
	app := newTestApp(t, config.Default(), db)
	ctx := context.Background()

	d, err := app.Inspector.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Person", "_Internal"}, d.Labels())

	cfg := config.Default()
	cfg.Schema.ExcludeLabels = []string{"_*"}
	require.NoError(t, app.Reload(ctx, cfg))

	d, err = app.Inspector.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Person"}, d.Labels())
}

func TestApp_WatcherWithoutConfigFile(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, config.Default(), &graphdb.MockDatabase{})
	loader := config.NewLoader(t.TempDir(), "")
	_, err := loader.Load()
	require.NoError(t, err)

	w, err := app.Watcher(loader)
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestApp_Close(t *testing.T) {
	t.Parallel()

	db := &graphdb.MockDatabase{}
	app, err := newApp(config.Default(), db, nil)
	require.NoError(t, err)

	_, err = app.Registry.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, app.Close(context.Background()))
	assert.True(t, db.Closed())
	assert.True(t, db.Transactions()[0].RolledBack())
	assert.Equal(t, 0, app.Registry.Len())
}
