// Package txn keeps explicit transactions open across independent requests,
// addressed by opaque handles.
package txn

// Implementation Plan:
// 1. Registry - RWMutex-guarded map of handle -> entry, per-entry mutex
// 2. Begin - open a driver transaction, register it under a fresh UUID handle
// 3. Query - run a statement in the transaction; failures keep it active
// 4. Commit/Rollback - finish the transaction and always drop the handle
// 5. ExpireIdle/Run - optional idle sweeper that rolls back abandoned transactions
// 6. Close - roll back everything still open on shutdown

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/history"
	"github.com/mvp-joe/neobridge/internal/protocol"
	"github.com/mvp-joe/neobridge/internal/query"
)

const tracerName = "github.com/mvp-joe/neobridge/internal/txn"

// Beginner opens transactions.
type Beginner interface {
	Begin(ctx context.Context) (graphdb.Tx, error)
}

type entry struct {
	id string
	tx graphdb.Tx

	// mu serializes every operation on the transaction and guards the fields below.
	mu       sync.Mutex
	lastUsed time.Time
	done     bool
}

// Registry maps handles to open transactions. All methods are safe for
// concurrent use; operations on one handle are serialized.
type Registry struct {
	db Beginner

	mu      sync.RWMutex
	entries map[string]*entry

	idleTimeout   time.Duration
	sweepInterval time.Duration
	nowFunc       func() time.Time
	idFunc        func() string

	recorder query.Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithIdleTimeout rolls back transactions unused for longer than d.
// Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithSweepInterval sets how often Run checks for idle transactions.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sweepInterval = d
		}
	}
}

// WithRecorder records statements run inside transactions.
func WithRecorder(rec query.Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty Registry that opens transactions on db.
func NewRegistry(db Beginner, opts ...Option) *Registry {
	r := &Registry{
		db:            db,
		entries:       make(map[string]*entry),
		sweepInterval: 30 * time.Second,
		nowFunc:       time.Now,
		idFunc:        uuid.NewString,
		tracer:        otel.Tracer(tracerName),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin opens a transaction and returns its handle.
func (r *Registry) Begin(ctx context.Context) (string, error) {
	ctx, span := r.tracer.Start(ctx, "txn.begin")
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", protocol.Wrap(protocol.CodeTransaction, err)
	}

	e := &entry{id: r.idFunc(), tx: tx, lastUsed: r.nowFunc()}
	r.mu.Lock()
	r.entries[e.id] = e
	r.mu.Unlock()

	span.SetAttributes(attribute.String("txn.id", e.id))
	r.logger.Debug("transaction opened", "transaction_id", e.id)
	return e.id, nil
}

// Query runs q inside the transaction. A failed statement leaves the
// transaction registered; the caller decides whether to roll back.
func (r *Registry) Query(ctx context.Context, id, q string, params map[string]any) (*protocol.Result, error) {
	if params == nil {
		params = map[string]any{}
	}
	details := map[string]any{"query": q, "params": params, "transaction_id": id}

	e, err := r.acquire(id)
	if err != nil {
		return nil, err.WithDetails(details)
	}
	defer e.mu.Unlock()

	ctx, span := r.tracer.Start(ctx, "txn.query", trace.WithAttributes(attribute.String("txn.id", id)))
	defer span.End()

	start := r.nowFunc()
	records, runErr := e.tx.Run(ctx, q, params)
	e.lastUsed = r.nowFunc()

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		perr := protocol.Wrap(protocol.CodeTransactionQuery, runErr).WithDetails(details)
		query.Record(ctx, r.recorder, r.logger, history.Entry{
			Query:         q,
			Params:        params,
			Duration:      e.lastUsed.Sub(start),
			Code:          string(perr.Code),
			TransactionID: id,
		})
		return nil, perr
	}

	result := query.Shape(records)
	result.Metadata.TransactionID = id
	result.Metadata.Status = protocol.StatusActive
	query.Record(ctx, r.recorder, r.logger, history.Entry{
		Query:         q,
		Params:        params,
		Duration:      records.Summary.Elapsed(),
		RowCount:      result.Metadata.RowCount,
		TransactionID: id,
	})
	return result, nil
}

// Commit commits the transaction. On failure the transaction is rolled back
// on a best-effort basis. The handle is invalid afterwards either way.
func (r *Registry) Commit(ctx context.Context, id string) error {
	e, perr := r.acquire(id)
	if perr != nil {
		return perr
	}
	defer e.mu.Unlock()
	defer r.remove(e)

	ctx, span := r.tracer.Start(ctx, "txn.commit", trace.WithAttributes(attribute.String("txn.id", id)))
	defer span.End()

	if err := e.tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if rbErr := e.tx.Rollback(ctx); rbErr != nil {
			r.logger.Debug("rollback after failed commit", "transaction_id", id, "error", rbErr)
		}
		return protocol.Wrap(protocol.CodeCommit, err)
	}
	r.logger.Debug("transaction committed", "transaction_id", id)
	return nil
}

// Rollback rolls the transaction back. The handle is invalid afterwards even
// when the rollback itself fails.
func (r *Registry) Rollback(ctx context.Context, id string) error {
	e, perr := r.acquire(id)
	if perr != nil {
		return perr
	}
	defer e.mu.Unlock()
	defer r.remove(e)

	ctx, span := r.tracer.Start(ctx, "txn.rollback", trace.WithAttributes(attribute.String("txn.id", id)))
	defer span.End()

	if err := e.tx.Rollback(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return protocol.Wrap(protocol.CodeRollback, err)
	}
	r.logger.Debug("transaction rolled back", "transaction_id", id)
	return nil
}

// Len returns the number of open transactions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ExpireIdle rolls back every transaction idle for longer than the idle
// timeout and returns how many were expired. Transactions with an operation
// in flight are skipped.
func (r *Registry) ExpireIdle(ctx context.Context) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.nowFunc().Add(-r.idleTimeout)

	expired := 0
	for _, e := range r.snapshot() {
		if !e.mu.TryLock() {
			continue
		}
		if e.done || e.lastUsed.After(cutoff) {
			e.mu.Unlock()
			continue
		}
		if err := e.tx.Rollback(ctx); err != nil {
			r.logger.Warn("failed to roll back idle transaction", "transaction_id", e.id, "error", err)
		}
		r.remove(e)
		e.mu.Unlock()
		r.logger.Info("expired idle transaction", "transaction_id", e.id, "idle_timeout", r.idleTimeout)
		expired++
	}
	return expired
}

// Run sweeps idle transactions until ctx is cancelled. It returns
// immediately when expiry is disabled.
func (r *Registry) Run(ctx context.Context) error {
	if r.idleTimeout <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.ExpireIdle(ctx)
		}
	}
}

// Close rolls back every open transaction.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, e := range r.snapshot() {
		e.mu.Lock()
		if !e.done {
			if err := e.tx.Rollback(ctx); err != nil {
				errs = append(errs, err)
			}
			r.remove(e)
		}
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}

// acquire returns the live entry for id with its mutex held.
func (r *Registry) acquire(id string) (*entry, *protocol.Error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, invalid()
	}

	e.mu.Lock()
	if e.done {
		// Finished while we waited for the lock.
		e.mu.Unlock()
		return nil, invalid()
	}
	return e, nil
}

// remove marks e finished and drops its handle. e.mu must be held.
func (r *Registry) remove(e *entry) {
	e.done = true
	r.mu.Lock()
	delete(r.entries, e.id)
	r.mu.Unlock()
}

func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

func invalid() *protocol.Error {
	return protocol.New(protocol.CodeInvalidTransaction, "Invalid transaction ID")
}
