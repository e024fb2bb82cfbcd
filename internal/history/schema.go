package history

import (
	"database/sql"
	"fmt"
)

const createHistoryTable = `
CREATE TABLE IF NOT EXISTS query_history (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	executed_at    INTEGER NOT NULL,
	query          TEXT NOT NULL,
	params         TEXT,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	row_count      INTEGER NOT NULL DEFAULT 0,
	code           TEXT,
	transaction_id TEXT
)`

const createHistoryIndex = `CREATE INDEX IF NOT EXISTS idx_query_history_executed_at ON query_history(executed_at)`

// CreateSchema creates the history table and its index. It is idempotent.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	for _, ddl := range []string{createHistoryTable, createHistoryIndex} {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create history schema: %w", err)
		}
	}
	return tx.Commit()
}
