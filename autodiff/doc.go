// Package autodiff implements reverse-mode automatic differentiation over
// scalar values.
//
// Every operation on a Value is recorded eagerly in a Graph arena together
// with the operation type that produced it. Backward walks the subgraph
// reachable from a root once to fix a reverse topological order, then sweeps
// it once, so a node shared by several consumers propagates its fully summed
// gradient exactly one time.
//
//	g := autodiff.NewGraph()
//	a := g.Leaf(1, true)
//	b := g.Leaf(2, true)
//	e := g.Add(g.Pow(a, 2), g.Pow(b, 2))
//	e.Backward() // a.Grad() == 2, b.Grad() == 4
package autodiff
