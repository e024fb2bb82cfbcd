// Package graphdb is the narrow database interface the rest of the module
// depends on, with a Neo4j implementation and an in-memory mock.
package graphdb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidConfig indicates a Config that cannot be used to connect.
	ErrInvalidConfig = errors.New("invalid graph database config")

	// ErrNotConnected indicates a call on a database that is not connected.
	ErrNotConnected = errors.New("graph database not connected")
)

// Config contains the connection settings for a graph database.
type Config struct {
	// URI is the bolt or neo4j connection URI, e.g. "bolt://localhost:7687".
	URI      string
	Username string
	Password string

	// Database name. Empty uses the server default.
	Database string

	MaxConnectionPoolSize   int
	ConnectionTimeout       time.Duration
	MaxTransactionRetryTime time.Duration

	// ConnectRetries is the number of connection attempts before giving up.
	ConnectRetries int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
		ConnectRetries:          5,
	}
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("%w: URI cannot be empty", ErrInvalidConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidConfig)
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("%w: connection timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxTransactionRetryTime <= 0 {
		return fmt.Errorf("%w: max transaction retry time must be positive", ErrInvalidConfig)
	}
	return nil
}

// Summary is the execution summary of a query.
type Summary struct {
	AvailableAfter time.Duration
	ConsumedAfter  time.Duration
	// Counters holds only the non-zero update counters.
	Counters map[string]int
}

// Elapsed is the server-reported time to first record plus time to consume.
func (s Summary) Elapsed() time.Duration {
	return s.AvailableAfter + s.ConsumedAfter
}

// Records is a fully collected query result.
type Records struct {
	Keys    []string
	Values  [][]any
	Summary Summary
}

// NewRecords builds a Records value, mainly for tests and mocks.
func NewRecords(keys []string, rows ...[]any) *Records {
	return &Records{Keys: keys, Values: rows}
}

// Len returns the number of records.
func (r *Records) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// Column returns the values of the named column.
func (r *Records) Column(key string) []any {
	if r == nil {
		return nil
	}
	idx := -1
	for i, k := range r.Keys {
		if k == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]any, 0, len(r.Values))
	for _, row := range r.Values {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}

// Runner executes Cypher.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (*Records, error)
}

// ReadRunner executes Cypher in read access mode. The server rejects
// statements that write.
type ReadRunner interface {
	RunRead(ctx context.Context, cypher string, params map[string]any) (*Records, error)
}

// Tx is an open explicit transaction.
type Tx interface {
	Runner
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// ServerInfo describes the database server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Edition string `json:"edition"`
}

// Database is a connected graph database.
type Database interface {
	Runner
	Begin(ctx context.Context) (Tx, error)
	Labels(ctx context.Context) ([]string, error)
	RelationshipTypes(ctx context.Context) ([]string, error)
	ServerInfo(ctx context.Context) (ServerInfo, error)
	Health(ctx context.Context) error
	Close(ctx context.Context) error
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a plain Cypher identifier that needs no
// quoting.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// QuoteIdentifier backtick-quotes a label, relationship type or property name
// for safe interpolation into Cypher.
func QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func stringColumn(records *Records) []string {
	out := make([]string, 0, records.Len())
	for _, row := range records.Values {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok {
			out = append(out, s)
		}
	}
	return out
}
