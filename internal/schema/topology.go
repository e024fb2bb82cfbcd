package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/neobridge/internal/protocol"
)

// Hop is one step of a label path: a relationship from one label to another.
type Hop struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Types []string `json:"types"`
}

// Topology builds the label-level graph of a descriptor: one vertex per label
// and one directed edge per observed (from, to) pair. The edge attribute
// "types" lists the relationship types joining the pair, comma separated.
func Topology(d *Descriptor) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed())

	addVertex := func(label string) error {
		if err := g.AddVertex(label); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return err
		}
		return nil
	}

	for _, label := range d.Labels() {
		if err := addVertex(label); err != nil {
			return nil, err
		}
	}

	type pair struct{ from, to string }
	edges := map[pair][]string{}
	var order []pair
	for _, relType := range d.RelationshipTypes() {
		from, to := d.ConnectedLabels(relType)
		for _, f := range from {
			for _, t := range to {
				p := pair{f, t}
				if _, seen := edges[p]; !seen {
					order = append(order, p)
				}
				edges[p] = append(edges[p], relType)
			}
		}
	}

	for _, p := range order {
		if err := addVertex(p.from); err != nil {
			return nil, err
		}
		if err := addVertex(p.to); err != nil {
			return nil, err
		}
		err := g.AddEdge(p.from, p.to, graph.EdgeAttribute("types", strings.Join(edges[p], ",")))
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %s->%s: %w", p.from, p.to, err)
		}
	}

	return g, nil
}

// Path returns the shortest sequence of hops leading from label from to
// label to. An empty path is returned when from equals to. Unknown labels
// and unreachable targets are reported as NOT_FOUND.
func Path(d *Descriptor, from, to string) ([]Hop, error) {
	g, err := Topology(d)
	if err != nil {
		return nil, err
	}
	if _, err := g.Vertex(from); err != nil {
		return nil, protocol.New(protocol.CodeNotFound, fmt.Sprintf("unknown label %q", from))
	}
	if _, err := g.Vertex(to); err != nil {
		return nil, protocol.New(protocol.CodeNotFound, fmt.Sprintf("unknown label %q", to))
	}
	if from == to {
		return []Hop{}, nil
	}

	labels, err := graph.ShortestPath(g, from, to)
	if err != nil {
		if errors.Is(err, graph.ErrTargetNotReachable) {
			return nil, protocol.New(protocol.CodeNotFound, fmt.Sprintf("no path from %q to %q", from, to))
		}
		return nil, err
	}

	hops := make([]Hop, 0, len(labels)-1)
	for i := 0; i+1 < len(labels); i++ {
		edge, err := g.Edge(labels[i], labels[i+1])
		if err != nil {
			return nil, err
		}
		types := strings.Split(edge.Properties.Attributes["types"], ",")
		slices.Sort(types)
		hops = append(hops, Hop{From: labels[i], To: labels[i+1], Types: types})
	}
	return hops, nil
}
