// Package entity implements label-scoped node CRUD and relationship creation
// on top of the query executor. Nodes are addressed by their "id" property.
package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvp-joe/neobridge/internal/format"
	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/protocol"
)

// Executor runs a standalone statement.
type Executor interface {
	Execute(ctx context.Context, q string, params map[string]any) (*protocol.Result, error)
}

// Relationship describes a relationship between two existing nodes.
type Relationship struct {
	FromLabel  string         `json:"fromLabel" validate:"required,cypher_identifier"`
	FromID     string         `json:"fromId" validate:"required"`
	ToLabel    string         `json:"toLabel" validate:"required,cypher_identifier"`
	ToID       string         `json:"toId" validate:"required"`
	Type       string         `json:"type" validate:"required,cypher_identifier"`
	Properties map[string]any `json:"properties"`
}

// Store performs entity operations.
type Store struct {
	exec Executor
}

// NewStore creates a Store.
func NewStore(exec Executor) *Store {
	return &Store{exec: exec}
}

// GetNode returns the row {"n": node} for the node with label and id.
func (s *Store) GetNode(ctx context.Context, label, id string) (format.Row, error) {
	l, err := identifier("label", label)
	if err != nil {
		return nil, err
	}
	return s.first(ctx, fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN n", l), map[string]any{"id": id})
}

// CreateNode creates a node with label and properties.
func (s *Store) CreateNode(ctx context.Context, label string, properties map[string]any) (format.Row, error) {
	l, err := identifier("label", label)
	if err != nil {
		return nil, err
	}
	return s.first(ctx, fmt.Sprintf("CREATE (n:%s) SET n = $props RETURN n", l), map[string]any{"props": props(properties)})
}

// UpdateNode merges properties into the node with label and id.
func (s *Store) UpdateNode(ctx context.Context, label, id string, properties map[string]any) (format.Row, error) {
	l, err := identifier("label", label)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("MATCH (n:%s {id: $id}) SET n += $props RETURN n", l)
	return s.first(ctx, q, map[string]any{"id": id, "props": props(properties)})
}

// DeleteNode deletes the node with label and id along with its
// relationships. Deleting a missing node is not an error.
func (s *Store) DeleteNode(ctx context.Context, label, id string) error {
	l, err := identifier("label", label)
	if err != nil {
		return err
	}
	_, err = s.exec.Execute(ctx, fmt.Sprintf("MATCH (n:%s {id: $id}) DETACH DELETE n", l), map[string]any{"id": id})
	return err
}

// CreateRelationship creates rel and returns the row {from, r, to}. Either
// endpoint missing yields NOT_FOUND.
func (s *Store) CreateRelationship(ctx context.Context, rel Relationship) (format.Row, error) {
	from, err := identifier("fromLabel", rel.FromLabel)
	if err != nil {
		return nil, err
	}
	to, err := identifier("toLabel", rel.ToLabel)
	if err != nil {
		return nil, err
	}
	typ, err := identifier("type", rel.Type)
	if err != nil {
		return nil, err
	}

	q := strings.Join([]string{
		fmt.Sprintf("MATCH (from:%s {id: $from_id}), (to:%s {id: $to_id})", from, to),
		fmt.Sprintf("CREATE (from)-[r:%s]->(to)", typ),
		"SET r = $props",
		"RETURN from, r, to",
	}, " ")
	row, err := s.first(ctx, q, map[string]any{
		"from_id": rel.FromID,
		"to_id":   rel.ToID,
		"props":   props(rel.Properties),
	})
	if protocol.CodeOf(err, "") == protocol.CodeNotFound {
		return nil, protocol.New(protocol.CodeNotFound, "Node not found").WithDetails(map[string]any{
			"from": rel.FromLabel + "/" + rel.FromID,
			"to":   rel.ToLabel + "/" + rel.ToID,
		})
	}
	return row, err
}

func (s *Store) first(ctx context.Context, q string, params map[string]any) (format.Row, error) {
	result, err := s.exec.Execute(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, protocol.New(protocol.CodeNotFound, "Node not found")
	}
	return result.Rows[0], nil
}

// identifier quotes name for interpolation, rejecting anything that is not
// a plain Cypher identifier.
func identifier(field, name string) (string, error) {
	if !graphdb.IsIdentifier(name) {
		return "", protocol.New(protocol.CodeValidation, fmt.Sprintf("invalid %s %q", field, name))
	}
	return graphdb.QuoteIdentifier(name), nil
}

func props(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
