package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/neobridge/internal/protocol"
)

func sampleDescriptor() *Descriptor {
	d := NewDescriptor()
	for _, label := range []string{"Person", "Product", "Company", "Island"} {
		d.Nodes[label] = NodeSchema{Properties: map[string]string{}}
	}
	d.Relationships["KNOWS"] = RelationshipSchema{Connects: Connects{{"Person"}, {"Person"}}}
	d.Relationships["BOUGHT"] = RelationshipSchema{Connects: Connects{{"Person"}, {"Product"}}}
	d.Relationships["REVIEWED"] = RelationshipSchema{Connects: Connects{{"Person"}, {"Product"}}}
	d.Relationships["MAKES"] = RelationshipSchema{Connects: Connects{{"Company"}, {"Product"}}}
	return d
}

func TestTopology(t *testing.T) {
	t.Parallel()

	g, err := Topology(sampleDescriptor())
	require.NoError(t, err)

	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, 4, order)

	size, err := g.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size, "Person->Person, Person->Product and Company->Product")

	edge, err := g.Edge("Person", "Product")
	require.NoError(t, err)
	assert.Equal(t, "BOUGHT,REVIEWED", edge.Properties.Attributes["types"])
}

func TestPath(t *testing.T) {
	t.Parallel()

	d := sampleDescriptor()

	t.Run("direct hop", func(t *testing.T) {
		t.Parallel()
		hops, err := Path(d, "Person", "Product")
		require.NoError(t, err)
		require.Len(t, hops, 1)
		assert.Equal(t, Hop{From: "Person", To: "Product", Types: []string{"BOUGHT", "REVIEWED"}}, hops[0])
	})

	t.Run("same label", func(t *testing.T) {
		t.Parallel()
		hops, err := Path(d, "Person", "Person")
		require.NoError(t, err)
		assert.Empty(t, hops)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		_, err := Path(d, "Product", "Person")
		assert.ErrorContains(t, err, "no path")
		assert.Equal(t, protocol.CodeNotFound, protocol.CodeOf(err, ""))
	})

	t.Run("unknown label", func(t *testing.T) {
		t.Parallel()
		_, err := Path(d, "Person", "Nope")
		assert.ErrorContains(t, err, "unknown label")
	})
}

func TestPath_MultiHop(t *testing.T) {
	t.Parallel()

	d := NewDescriptor()
	d.Relationships["WORKS_AT"] = RelationshipSchema{Connects: Connects{{"Person"}, {"Company"}}}
	d.Relationships["MAKES"] = RelationshipSchema{Connects: Connects{{"Company"}, {"Product"}}}

	hops, err := Path(d, "Person", "Product")
	require.NoError(t, err)
	require.Len(t, hops, 2)
	assert.Equal(t, "Company", hops[0].To)
	assert.Equal(t, []string{"WORKS_AT"}, hops[0].Types)
	assert.Equal(t, []string{"MAKES"}, hops[1].Types)
}
