// Package protocol defines the response envelopes and error codes shared by
// the HTTP API, the MCP tools and the client SDK.
package protocol

import (
	"github.com/mvp-joe/neobridge/internal/format"
	"github.com/mvp-joe/neobridge/internal/graphdb"
)

// MCPVersion is reported in the info envelope.
const MCPVersion = "1.0"

// TransactionStatus is the lifecycle state reported for a transaction.
type TransactionStatus string

const (
	StatusActive     TransactionStatus = "active"
	StatusCommitted  TransactionStatus = "committed"
	StatusRolledBack TransactionStatus = "rolled_back"
)

// Metadata describes a query result.
type Metadata struct {
	QueryTimeMs   int64             `json:"queryTimeMs"`
	RowCount      int               `json:"rowCount"`
	HasMore       bool              `json:"hasMore"`
	Counters      map[string]int    `json:"counters,omitempty"`
	TotalCount    *int              `json:"totalCount,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Status        TransactionStatus `json:"status,omitempty"`
}

// Result is the success envelope for every query operation.
type Result struct {
	Rows     []format.Row `json:"rows"`
	Metadata Metadata     `json:"metadata"`
}

// FailureMetadata is the metadata of a failed query envelope.
type FailureMetadata struct {
	RowCount      int    `json:"rowCount"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// QueryFailure is the failure envelope for query operations. Rows is always
// empty.
type QueryFailure struct {
	Error    *ErrorBody      `json:"error"`
	Rows     []format.Row    `json:"rows"`
	Metadata FailureMetadata `json:"metadata"`
}

// NewQueryFailure builds the failure envelope for err. transactionID is
// echoed when the query ran inside a transaction.
func NewQueryFailure(err error, transactionID string) QueryFailure {
	return QueryFailure{
		Error:    Body(err, CodeNeo4j),
		Rows:     []format.Row{},
		Metadata: FailureMetadata{TransactionID: transactionID},
	}
}

// TransactionMetadata carries the status of a transaction lifecycle call.
type TransactionMetadata struct {
	Status TransactionStatus `json:"status"`
}

// TransactionEnvelope is returned by begin, commit and rollback.
type TransactionEnvelope struct {
	TransactionID string               `json:"transaction_id,omitempty"`
	Metadata      *TransactionMetadata `json:"metadata,omitempty"`
	Error         *ErrorBody           `json:"error,omitempty"`
}

// NewTransactionEnvelope builds the envelope for a lifecycle call that ended
// in status, or in err when err is non-nil.
func NewTransactionEnvelope(id string, status TransactionStatus, err error, fallback Code) TransactionEnvelope {
	if err != nil {
		return TransactionEnvelope{Error: Body(err, fallback)}
	}
	return TransactionEnvelope{
		TransactionID: id,
		Metadata:      &TransactionMetadata{Status: status},
	}
}

// CursorOptions controls server-side pagination of a query.
type CursorOptions struct {
	Limit        *int `json:"limit,omitempty" mapstructure:"limit" validate:"omitempty,min=1"`
	Offset       *int `json:"offset,omitempty" mapstructure:"offset" validate:"omitempty,min=0"`
	// IncludeTotal adds metadata.totalCount. Read queries only.
	IncludeTotal bool `json:"includeTotal,omitempty" mapstructure:"includeTotal"`
}

// QueryRequest is the body of a query call.
type QueryRequest struct {
	Query         string         `json:"query" mapstructure:"query" validate:"required"`
	Params        map[string]any `json:"params,omitempty" mapstructure:"params"`
	CursorOptions *CursorOptions `json:"cursorOptions,omitempty" mapstructure:"cursorOptions"`
}

// Capabilities advertises what the access layer supports.
type Capabilities struct {
	Query       bool `json:"query"`
	Schema      bool `json:"schema"`
	Transaction bool `json:"transaction"`
	Write       bool `json:"write"`
	Subscribe   bool `json:"subscribe"`
}

// DatabaseInfo describes the connected database.
type DatabaseInfo struct {
	Type string             `json:"type"`
	Info graphdb.ServerInfo `json:"info"`
}

// Info is the introspection envelope.
type Info struct {
	MCPVersion   string       `json:"mcp_version"`
	Capabilities Capabilities `json:"capabilities"`
	Database     DatabaseInfo `json:"database"`
	Stats        any          `json:"stats,omitempty"`
}

// NewInfo builds the introspection envelope for a database reporting server.
func NewInfo(server graphdb.ServerInfo) Info {
	return Info{
		MCPVersion: MCPVersion,
		Capabilities: Capabilities{
			Query:       true,
			Schema:      true,
			Transaction: true,
			Write:       true,
			Subscribe:   false,
		},
		Database: DatabaseInfo{Type: "neo4j", Info: server},
	}
}
