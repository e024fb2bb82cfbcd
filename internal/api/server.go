// Package api serves the access layer over HTTP: standalone and paginated
// queries, client-held transactions, schema introspection and label-scoped
// node CRUD.
package api

// Implementation Plan:
// 1. Server - owns the route table and the http.Server lifecycle
// 2. Routes - one handler per endpoint, each delegating to a core component
// 3. Errors - coded errors map to HTTP status; validation failures become {"errors": [...]}
// 4. Middleware - recovery, request logging, optional bearer auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mvp-joe/neobridge/internal/entity"
	"github.com/mvp-joe/neobridge/internal/format"
	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/protocol"
	"github.com/mvp-joe/neobridge/internal/schema"
)

// shutdownTimeout bounds graceful shutdown once the serve context ends.
const shutdownTimeout = 10 * time.Second

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// AuthToken, when set, must be presented as a bearer token on every
	// route except /health.
	AuthToken    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Database reports server health and identity.
type Database interface {
	Health(ctx context.Context) error
	ServerInfo(ctx context.Context) (graphdb.ServerInfo, error)
}

// QueryService runs standalone statements.
type QueryService interface {
	Execute(ctx context.Context, q string, params map[string]any) (*protocol.Result, error)
	ExecutePaginated(ctx context.Context, q string, params map[string]any, opts protocol.CursorOptions) (*protocol.Result, error)
}

// TransactionService manages client-held transactions.
type TransactionService interface {
	Begin(ctx context.Context) (string, error)
	Query(ctx context.Context, id, q string, params map[string]any) (*protocol.Result, error)
	Commit(ctx context.Context, id string) error
	Rollback(ctx context.Context, id string) error
}

// SchemaService infers the graph schema.
type SchemaService interface {
	Inspect(ctx context.Context) (*schema.Descriptor, error)
}

// EntityService performs label-scoped node operations.
type EntityService interface {
	GetNode(ctx context.Context, label, id string) (format.Row, error)
	CreateNode(ctx context.Context, label string, properties map[string]any) (format.Row, error)
	UpdateNode(ctx context.Context, label, id string, properties map[string]any) (format.Row, error)
	DeleteNode(ctx context.Context, label, id string) error
	CreateRelationship(ctx context.Context, rel entity.Relationship) (format.Row, error)
}

// Deps are the components the server routes to. All are required except
// Validator and Logger.
type Deps struct {
	Database     Database
	Queries      QueryService
	Transactions TransactionService
	Schema       SchemaService
	Entities     EntityService
	Validator    *Validator
	Logger       *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	config   Config
	deps     Deps
	logger   *slog.Logger
	validate *Validator
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server. It does not start listening.
func New(config Config, deps Deps) (*Server, error) {
	if deps.Database == nil || deps.Queries == nil || deps.Transactions == nil || deps.Schema == nil || deps.Entities == nil {
		return nil, errors.New("api: database, queries, transactions, schema and entities are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := deps.Validator
	if v == nil {
		v = NewValidator(DefaultRequiredProperties())
	}

	s := &Server{
		config:   config,
		deps:     deps,
		logger:   logger,
		validate: v,
	}
	s.handler = s.recovery(s.logging(s.auth(s.routes())))
	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address once the server is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("http server listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
