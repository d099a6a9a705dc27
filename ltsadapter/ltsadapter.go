// Package ltsadapter adapts a gonum directed graph into a bisim.LTS, for
// callers who already model their transition system as a gonum graph
// rather than a flat transition slice.
package ltsadapter

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/jgkw/bisim"
)

// Edge is a graph.Edge that also carries the action label of the
// transition it represents. Build edges with NewEdge and install them
// with (*simple.DirectedGraph).SetEdge.
type Edge struct {
	F, T graph.Node
	L    bisim.Label
}

// NewEdge builds an Edge from u to v labelled l.
func NewEdge(u, v graph.Node, l bisim.Label) Edge {
	return Edge{F: u, T: v, L: l}
}

func (e Edge) From() graph.Node         { return e.F }
func (e Edge) To() graph.Node           { return e.T }
func (e Edge) ReversedEdge() graph.Edge { return Edge{F: e.T, T: e.F, L: e.L} }

// Graph is a read-only bisim.LTS view over a gonum directed graph whose
// edges are ltsadapter.Edge values. simple.DirectedGraph only holds one
// edge per ordered node pair, so this view cannot represent two distinct
// actions between the same pair of states; that is a limitation of the
// graph package, not of bisim itself, and is fine for the common case of
// a deterministic or lightly-nondeterministic source system. Callers
// needing true parallel actions between the same pair should build their
// own bisim.LTS directly instead of going through this adapter.
type Graph struct {
	g       *simple.DirectedGraph
	silent  bisim.Label
	n       int
	initial int
}

// New builds a Graph view. n is the node count; node IDs are expected to
// be the dense range [0,n), matching simple.NewDirectedGraph's defaults;
// each int64 node id becomes the int state id in bisim.Transition.From/To.
// silent is
// the label treated as tau when the caller requests branching or
// divergence-preserving bisimulation; initial is the node id bisim should
// track through quotienting.
func New(g *simple.DirectedGraph, n int, silent bisim.Label, initial int) *Graph {
	return &Graph{g: g, silent: silent, n: n, initial: initial}
}

func (a *Graph) NumStates() int { return a.n }

func (a *Graph) SilentLabel() bisim.Label { return a.silent }

func (a *Graph) Initial() int { return a.initial }

func (a *Graph) Transitions() []bisim.Transition {
	var out []bisim.Transition
	edges := a.g.Edges()
	for edges.Next() {
		e, ok := edges.Edge().(Edge)
		if !ok {
			continue
		}
		out = append(out, bisim.Transition{
			From:  int(e.From().ID()),
			Label: e.L,
			To:    int(e.To().ID()),
		})
	}
	return out
}
