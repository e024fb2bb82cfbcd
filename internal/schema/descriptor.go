package schema

import (
	"encoding/json"
	"slices"

	"github.com/mvp-joe/neobridge/internal/protocol"
)

// NodeSchema describes one node label.
type NodeSchema struct {
	// Properties maps property name to Cypher type name.
	Properties map[string]string `json:"properties"`
}

// Connects holds the labels observed on the start and end nodes of a
// relationship type, each sorted.
type Connects [2][]string

// MarshalJSON always emits two arrays, empty when nothing was observed.
func (c Connects) MarshalJSON() ([]byte, error) {
	out := [2][]string{c[0], c[1]}
	for i := range out {
		if out[i] == nil {
			out[i] = []string{}
		}
	}
	return json.Marshal(out)
}

// RelationshipSchema describes one relationship type.
type RelationshipSchema struct {
	Properties map[string]string `json:"properties"`
	Connects   Connects          `json:"connects"`
}

// Descriptor is an inferred graph schema.
type Descriptor struct {
	Nodes         map[string]NodeSchema         `json:"nodes"`
	Relationships map[string]RelationshipSchema `json:"relationships"`
}

// NewDescriptor returns an empty descriptor.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		Nodes:         map[string]NodeSchema{},
		Relationships: map[string]RelationshipSchema{},
	}
}

// Labels returns the node labels in sorted order.
func (d *Descriptor) Labels() []string {
	out := make([]string, 0, len(d.Nodes))
	for label := range d.Nodes {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

// RelationshipTypes returns the relationship types in sorted order.
func (d *Descriptor) RelationshipTypes() []string {
	out := make([]string, 0, len(d.Relationships))
	for t := range d.Relationships {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// NodeProperties returns the property types of label, or nil if unknown.
func (d *Descriptor) NodeProperties(label string) map[string]string {
	n, ok := d.Nodes[label]
	if !ok {
		return nil
	}
	return n.Properties
}

// RelationshipProperties returns the property types of relType, or nil if unknown.
func (d *Descriptor) RelationshipProperties(relType string) map[string]string {
	r, ok := d.Relationships[relType]
	if !ok {
		return nil
	}
	return r.Properties
}

// ConnectedLabels returns the start and end labels observed for relType.
func (d *Descriptor) ConnectedLabels(relType string) (from, to []string) {
	r, ok := d.Relationships[relType]
	if !ok {
		return nil, nil
	}
	return r.Connects[0], r.Connects[1]
}

// ResponseMetadata summarizes a descriptor.
type ResponseMetadata struct {
	NodeLabelCount        int `json:"node_label_count"`
	RelationshipTypeCount int `json:"relationship_type_count"`
}

// Response is the schema envelope. On failure Schema is empty and Metadata
// is an empty object.
type Response struct {
	Schema   *Descriptor         `json:"schema"`
	Metadata any                 `json:"metadata"`
	Error    *protocol.ErrorBody `json:"error,omitempty"`
}

// NewResponse builds the envelope for an Inspect outcome.
func NewResponse(d *Descriptor, err error) Response {
	if err != nil {
		return Response{
			Schema:   NewDescriptor(),
			Metadata: struct{}{},
			Error:    protocol.Body(err, protocol.CodeSchema),
		}
	}
	return Response{
		Schema: d,
		Metadata: ResponseMetadata{
			NodeLabelCount:        len(d.Nodes),
			RelationshipTypeCount: len(d.Relationships),
		},
	}
}
