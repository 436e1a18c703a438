package autodiff

import (
	"gonum.org/v1/gonum/graph/simple"
)

// Subgraph exports the nodes reachable from root as a gonum directed graph.
// Node IDs are arena indices and every edge points from a consumer to one of
// its operands. Repeated operands, as in Mul(a, a), collapse into one edge.
func Subgraph(root Value) *simple.DirectedGraph {
	g := root.Graph()
	if g == nil {
		panic("autodiff: subgraph of zero Value")
	}

	dg := simple.NewDirectedGraph()
	for _, v := range g.TopoOrder(root) {
		from := simple.Node(int64(v.id))
		if dg.Node(from.ID()) == nil {
			dg.AddNode(from)
		}

		n := g.nodes[v.id]
		for _, operand := range n.Operands[:n.Op.Arity()] {
			to := simple.Node(int64(operand))
			if dg.HasEdgeFromTo(from.ID(), to.ID()) {
				continue
			}
			dg.SetEdge(dg.NewEdge(from, to))
		}
	}
	return dg
}
