package cli

// Implementation Plan:
// 1. connect - open the Neo4j driver from config, then wire the App
// 2. newApp - build executor, registry, inspector and entity store on any graphdb.Database
// 3. APIServer/MCPServer - front ends sharing the same components
// 4. Watcher - reapplies schema settings when the config file changes
// 5. Close - roll back open transactions, release cache, history and driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mvp-joe/neobridge/internal/api"
	"github.com/mvp-joe/neobridge/internal/config"
	"github.com/mvp-joe/neobridge/internal/entity"
	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/history"
	"github.com/mvp-joe/neobridge/internal/mcp"
	"github.com/mvp-joe/neobridge/internal/query"
	"github.com/mvp-joe/neobridge/internal/schema"
	"github.com/mvp-joe/neobridge/internal/txn"
)

// App holds the components shared by every command that talks to the
// database.
type App struct {
	Config    *config.Config
	DB        graphdb.Database
	History   *history.Store // nil when history is disabled
	Executor  *query.Executor
	Registry  *txn.Registry
	Inspector *schema.Inspector
	Entities  *entity.Store
	Logger    *slog.Logger
}

// connect opens the database described by cfg and wires an App on it.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := graphdb.NewNeo4j(cfg.GraphDB(), logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}

	app, err := newApp(cfg, db, logger)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return app, nil
}

func newApp(cfg *config.Config, db graphdb.Database, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, DB: db, Logger: logger}

	execOpts := []query.Option{query.WithLogger(logger)}
	txnOpts := []txn.Option{
		txn.WithLogger(logger),
		txn.WithIdleTimeout(cfg.Transactions.IdleTimeout),
		txn.WithSweepInterval(cfg.Transactions.SweepInterval),
	}
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve history path: %w", err)
		}
		store, err := history.Open(path)
		if err != nil {
			return nil, err
		}
		app.History = store
		execOpts = append(execOpts, query.WithRecorder(store))
		txnOpts = append(txnOpts, txn.WithRecorder(store))
	}

	inspector, err := schema.NewInspector(db, cfg.SchemaOptions(), logger)
	if err != nil {
		if app.History != nil {
			app.History.Close()
		}
		return nil, fmt.Errorf("failed to create schema inspector: %w", err)
	}

	app.Executor = query.NewExecutor(db, execOpts...)
	app.Registry = txn.NewRegistry(db, txnOpts...)
	app.Inspector = inspector
	app.Entities = entity.NewStore(app.Executor)
	return app, nil
}

// APIServer creates the HTTP API on the app's components.
func (a *App) APIServer() (*api.Server, error) {
	return api.New(a.Config.API(), api.Deps{
		Database:     a.DB,
		Queries:      a.Executor,
		Transactions: a.Registry,
		Schema:       a.Inspector,
		Entities:     a.Entities,
		Validator:    api.NewValidator(a.Config.RequiredProperties()),
		Logger:       a.Logger,
	})
}

// MCPServer creates the MCP tool server on the app's components.
func (a *App) MCPServer() (*mcp.MCPServer, error) {
	deps := mcp.Deps{
		Database:     a.DB,
		Queries:      a.Executor,
		Transactions: a.Registry,
		Schema:       a.Inspector,
		Logger:       a.Logger,
	}
	if a.History != nil {
		deps.History = a.History
	}
	return mcp.NewMCPServer(deps, Version)
}

// Reload applies the schema settings of a reloaded configuration. Other
// settings need a restart.
func (a *App) Reload(ctx context.Context, cfg *config.Config) error {
	if err := a.Inspector.Configure(cfg.SchemaOptions()); err != nil {
		return err
	}
	a.Logger.Info("schema settings reloaded",
		"exclude_labels", cfg.Schema.ExcludeLabels,
		"exclude_relationship_types", cfg.Schema.ExcludeRelationshipTypes,
		"cache_ttl", cfg.Schema.CacheTTL)
	return nil
}

// Watcher returns a config watcher feeding Reload, or nil when no config
// file was loaded.
func (a *App) Watcher(loader config.Loader) (*config.Watcher, error) {
	path := loader.ConfigFile()
	if path == "" {
		return nil, nil
	}
	return config.NewWatcher(loader, path, []config.Reloadable{a}, config.WithWatchLogger(a.Logger))
}

// Close rolls back open transactions and releases every resource.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Registry.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to roll back open transactions: %w", err))
	}
	a.Inspector.Close()
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.DB.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
