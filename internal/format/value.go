// Package format converts native driver values into the tagged, JSON-safe
// shape every response carries.
package format

// Implementation Plan:
// 1. Value - tagged variant (Node, Relationship, Path, Scalar, List, Map)
// 2. Of - converts any native driver value, recursing into lists and maps
// 3. Record - converts one result record into a Row keyed by column name
// 4. Properties - normalizes property maps (temporal and spatial values become JSON-safe)
// 5. TypeName - Cypher type name for a property value, used by schema inference

import (
	"encoding/json"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Kind tags a formatted value.
type Kind string

const (
	KindNode         Kind = "node"
	KindRelationship Kind = "relationship"
	KindPath         Kind = "path"
	KindScalar       Kind = "scalar"
	KindList         Kind = "list"
	KindMap          Kind = "map"
)

// Value is a formatted graph value.
type Value interface {
	Kind() Kind
}

// Row is one formatted result record keyed by column name.
type Row map[string]Value

// Node is a formatted node.
type Node struct {
	ID         int64          `json:"id"`
	ElementID  string         `json:"element_id,omitempty"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

func (Node) Kind() Kind { return KindNode }

func (n Node) MarshalJSON() ([]byte, error) {
	type alias Node
	return json.Marshal(struct {
		Type Kind `json:"__type"`
		alias
	}{KindNode, alias(n)})
}

// Relationship is a formatted relationship.
type Relationship struct {
	ID             int64          `json:"id"`
	ElementID      string         `json:"element_id,omitempty"`
	Type           string         `json:"type"`
	Properties     map[string]any `json:"properties"`
	StartNodeID    int64          `json:"start_node_id"`
	EndNodeID      int64          `json:"end_node_id"`
	StartElementID string         `json:"start_element_id,omitempty"`
	EndElementID   string         `json:"end_element_id,omitempty"`
}

func (Relationship) Kind() Kind { return KindRelationship }

func (r Relationship) MarshalJSON() ([]byte, error) {
	type alias Relationship
	return json.Marshal(struct {
		Type Kind `json:"__type"`
		alias
	}{KindRelationship, alias(r)})
}

// Path is a formatted path. Nodes and relationships keep their traversal order.
type Path struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

func (Path) Kind() Kind { return KindPath }

func (p Path) MarshalJSON() ([]byte, error) {
	type alias Path
	return json.Marshal(struct {
		Type Kind `json:"__type"`
		alias
	}{KindPath, alias(p)})
}

// Scalar wraps a JSON-safe primitive. It marshals as the bare value.
type Scalar struct {
	V any
}

func (Scalar) Kind() Kind { return KindScalar }

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.V)
}

// List is an ordered sequence of formatted values.
type List []Value

func (List) Kind() Kind { return KindList }

// Map is a string-keyed collection of formatted values.
type Map map[string]Value

func (Map) Kind() Kind { return KindMap }

// Of formats a native driver value.
func Of(v any) Value {
	switch v := v.(type) {
	case dbtype.Node:
		return node(v)
	case *dbtype.Node:
		if v == nil {
			return Scalar{}
		}
		return node(*v)
	case dbtype.Relationship:
		return relationship(v)
	case *dbtype.Relationship:
		if v == nil {
			return Scalar{}
		}
		return relationship(*v)
	case dbtype.Path:
		return path(v)
	case *dbtype.Path:
		if v == nil {
			return Scalar{}
		}
		return path(*v)
	case []any:
		list := make(List, 0, len(v))
		for _, item := range v {
			list = append(list, Of(item))
		}
		return list
	case map[string]any:
		m := make(Map, len(v))
		for k, item := range v {
			m[k] = Of(item)
		}
		return m
	default:
		return Scalar{V: scalar(v)}
	}
}

// Record formats one result record. keys and values are parallel.
func Record(keys []string, values []any) Row {
	row := make(Row, len(keys))
	for i, key := range keys {
		var v any
		if i < len(values) {
			v = values[i]
		}
		row[key] = Of(v)
	}
	return row
}

// Properties returns a JSON-safe copy of a property map. It never returns nil.
func Properties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = property(v)
	}
	return out
}

func property(v any) any {
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = property(item)
		}
		return out
	}
	return scalar(v)
}

// scalar renders temporal values as ISO-8601 strings and points as coordinate
// maps. Everything else passes through.
func scalar(v any) any {
	switch v := v.(type) {
	case dbtype.Date:
		return v.String()
	case dbtype.LocalTime:
		return v.String()
	case dbtype.Time:
		return v.String()
	case dbtype.LocalDateTime:
		return v.String()
	case dbtype.Duration:
		return v.String()
	case dbtype.Point2D:
		return map[string]any{"srid": v.SpatialRefId, "x": v.X, "y": v.Y}
	case dbtype.Point3D:
		return map[string]any{"srid": v.SpatialRefId, "x": v.X, "y": v.Y, "z": v.Z}
	default:
		return v
	}
}

func node(n dbtype.Node) Node {
	labels := make([]string, len(n.Labels))
	copy(labels, n.Labels)
	return Node{
		ID:         n.Id, //nolint:staticcheck // numeric ids are part of the wire contract
		ElementID:  n.ElementId,
		Labels:     labels,
		Properties: Properties(n.Props),
	}
}

func relationship(r dbtype.Relationship) Relationship {
	return Relationship{
		ID:             r.Id,      //nolint:staticcheck
		StartNodeID:    r.StartId, //nolint:staticcheck
		EndNodeID:      r.EndId,   //nolint:staticcheck
		ElementID:      r.ElementId,
		StartElementID: r.StartElementId,
		EndElementID:   r.EndElementId,
		Type:           r.Type,
		Properties:     Properties(r.Props),
	}
}

func path(p dbtype.Path) Path {
	out := Path{
		Nodes:         make([]Node, 0, len(p.Nodes)),
		Relationships: make([]Relationship, 0, len(p.Relationships)),
	}
	for _, n := range p.Nodes {
		out.Nodes = append(out.Nodes, node(n))
	}
	for _, r := range p.Relationships {
		out.Relationships = append(out.Relationships, relationship(r))
	}
	return out
}
