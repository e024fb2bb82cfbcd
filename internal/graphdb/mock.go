package graphdb

import (
	"context"
	"errors"
	"maps"
	"sync"
)

// MockCall records one statement seen by a MockDatabase.
type MockCall struct {
	Cypher string
	Params map[string]any
	// Tx is the 1-based transaction number, or 0 for auto-commit runs.
	Tx int
	// Read is set for statements run through RunRead.
	Read bool
}

// MockDatabase is an in-memory Database for tests. RunFunc answers every
// statement, including statements run inside transactions; when it is nil
// every statement returns an empty result.
type MockDatabase struct {
	RunFunc func(ctx context.Context, cypher string, params map[string]any) (*Records, error)

	BeginErr    error
	CommitErr   error
	RollbackErr error

	LabelNames            []string
	RelationshipTypeNames []string
	CatalogErr            error

	Info      ServerInfo
	InfoErr   error
	HealthErr error

	mu     sync.Mutex
	calls  []MockCall
	txs    []*MockTx
	closed bool
}

var (
	_ Database   = (*MockDatabase)(nil)
	_ ReadRunner = (*MockDatabase)(nil)
)

func (m *MockDatabase) run(ctx context.Context, cypher string, params map[string]any, tx int, read bool) (*Records, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Cypher: cypher, Params: maps.Clone(params), Tx: tx, Read: read})
	fn := m.RunFunc
	m.mu.Unlock()

	if fn == nil {
		return &Records{}, nil
	}
	return fn(ctx, cypher, params)
}

func (m *MockDatabase) Run(ctx context.Context, cypher string, params map[string]any) (*Records, error) {
	return m.run(ctx, cypher, params, 0, false)
}

func (m *MockDatabase) RunRead(ctx context.Context, cypher string, params map[string]any) (*Records, error) {
	return m.run(ctx, cypher, params, 0, true)
}

func (m *MockDatabase) Begin(ctx context.Context) (Tx, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTx{db: m, n: len(m.txs) + 1}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *MockDatabase) Labels(ctx context.Context) ([]string, error) {
	if m.CatalogErr != nil {
		return nil, m.CatalogErr
	}
	return append([]string(nil), m.LabelNames...), nil
}

func (m *MockDatabase) RelationshipTypes(ctx context.Context) ([]string, error) {
	if m.CatalogErr != nil {
		return nil, m.CatalogErr
	}
	return append([]string(nil), m.RelationshipTypeNames...), nil
}

func (m *MockDatabase) ServerInfo(ctx context.Context) (ServerInfo, error) {
	return m.Info, m.InfoErr
}

func (m *MockDatabase) Health(ctx context.Context) error {
	return m.HealthErr
}

func (m *MockDatabase) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns a copy of every statement run so far.
func (m *MockDatabase) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// Transactions returns every transaction begun so far.
func (m *MockDatabase) Transactions() []*MockTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockTx(nil), m.txs...)
}

// Closed reports whether Close was called.
func (m *MockDatabase) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockTx is a transaction opened on a MockDatabase.
type MockTx struct {
	db *MockDatabase
	n  int

	mu         sync.Mutex
	committed  bool
	rolledBack bool
	closed     bool
}

var errTxFinished = errors.New("transaction already finished")

func (t *MockTx) Run(ctx context.Context, cypher string, params map[string]any) (*Records, error) {
	t.mu.Lock()
	finished := t.committed || t.rolledBack || t.closed
	t.mu.Unlock()
	if finished {
		return nil, errTxFinished
	}
	return t.db.run(ctx, cypher, params, t.n, false)
}

func (t *MockTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return errTxFinished
	}
	if t.db.CommitErr != nil {
		return t.db.CommitErr
	}
	t.committed = true
	return nil
}

func (t *MockTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return errTxFinished
	}
	t.rolledBack = true
	return t.db.RollbackErr
}

func (t *MockTx) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Committed reports whether the transaction committed.
func (t *MockTx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// RolledBack reports whether Rollback was called on the transaction.
func (t *MockTx) RolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolledBack
}
