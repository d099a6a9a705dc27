package ltsadapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/jgkw/bisim"
	"github.com/jgkw/bisim/ltsadapter"
)

const (
	tau bisim.Label = 0
	a   bisim.Label = 1
)

func TestGraphTransitionsRoundTrip(t *testing.T) {
	g := simple.NewDirectedGraph()
	for i := int64(0); i < 2; i++ {
		g.AddNode(simple.Node(i))
	}
	g.SetEdge(ltsadapter.NewEdge(simple.Node(0), simple.Node(1), a))
	g.SetEdge(ltsadapter.NewEdge(simple.Node(1), simple.Node(0), a))

	view := ltsadapter.New(g, 2, tau, 0)
	require.Equal(t, 2, view.NumStates())
	assert.Equal(t, tau, view.SilentLabel())

	trans := view.Transitions()
	assert.Len(t, trans, 2)

	p, err := bisim.New(view)
	require.NoError(t, err)
	assert.Equal(t, 1, p.NumEquivalenceClasses())
}
