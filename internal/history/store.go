// Package history keeps an optional local SQLite log of executed queries.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one executed query.
type Entry struct {
	ID            int64          `json:"id"`
	At            time.Time      `json:"at"`
	Query         string         `json:"query"`
	Params        map[string]any `json:"params,omitempty"`
	Duration      time.Duration  `json:"-"`
	RowCount      int            `json:"row_count"`
	Code          string         `json:"code,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
}

// MarshalJSON reports Duration in whole milliseconds as duration_ms.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"duration_ms"`
	}{plain(e), e.Duration.Milliseconds()})
}

// Store reads and writes history entries.
type Store struct {
	db     *sql.DB
	ownsDB bool
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite serializes writers anyway; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, ownsDB: true}, nil
}

// NewStoreWithDB wraps an existing connection. The caller keeps ownership
// and must have called CreateSchema.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record appends an entry. A zero At is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	var params []byte
	if len(e.Params) > 0 {
		var err error
		params, err = json.Marshal(e.Params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
	}

	_, err := sq.Insert("query_history").
		Columns("executed_at", "query", "params", "duration_ms", "row_count", "code", "transaction_id").
		Values(e.At.UnixMilli(), e.Query, nullString(string(params)), e.Duration.Milliseconds(), e.RowCount,
			nullString(e.Code), nullString(e.TransactionID)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := sq.Select("id", "executed_at", "query", "params", "duration_ms", "row_count", "code", "transaction_id").
		From("query_history").
		OrderBy("id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			at, durMs  int64
			params     sql.NullString
			code, txID sql.NullString
		)
		if err := rows.Scan(&e.ID, &at, &e.Query, &params, &durMs, &e.RowCount, &code, &txID); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.At = time.UnixMilli(at)
		e.Duration = time.Duration(durMs) * time.Millisecond
		e.Code = code.String
		e.TransactionID = txID.String
		if params.Valid && params.String != "" {
			if err := json.Unmarshal([]byte(params.String), &e.Params); err != nil {
				return nil, fmt.Errorf("failed to decode params for entry %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
