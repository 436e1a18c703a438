package autodiff

import (
	"fmt"
)

// backwardPlan is the result of the traversal phase of a backward pass.
type backwardPlan struct {
	// order lists every node reachable from the root in post-order, so each
	// node appears after all of its operands.
	order []int32
	// pending counts, per node, the consumer edges inside the reachable
	// subgraph that have not yet delivered their adjoint.
	pending []int32
}

// plan walks the subgraph reachable from root depth first. The walk uses an
// explicit stack so deep graphs (long chains of adds) cannot exhaust the
// goroutine stack.
func (g *Graph) plan(root int32) backwardPlan {
	// Operands always precede their consumers in the arena, so nothing
	// reachable from root has a larger index.
	size := int(root) + 1
	visited := make([]bool, size)
	p := backwardPlan{
		order:   make([]int32, 0, size),
		pending: make([]int32, size),
	}

	type frame struct {
		id       int32
		expanded bool
	}
	stack := []frame{{id: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.expanded {
			p.order = append(p.order, f.id)
			continue
		}
		if visited[f.id] {
			continue
		}
		visited[f.id] = true

		// Re-push the node so it is emitted after its operands
		stack = append(stack, frame{id: f.id, expanded: true})

		n := &g.nodes[f.id]
		for k := n.Op.Arity() - 1; k >= 0; k-- {
			operand := n.Operands[k]
			p.pending[operand]++
			if !visited[operand] {
				stack = append(stack, frame{id: operand})
			}
		}
	}

	return p
}

// Backward computes the gradient of root with respect to every node reachable
// from it and adds the result into each node's Grad.
//
// Adjoints are summed in a scratch buffer and each node's local rule runs
// exactly once, after every consumer has contributed. Calling Backward twice
// without ZeroGrad in between therefore accumulates two full gradients.
func (g *Graph) Backward(root Value) {
	g.node(root)

	p := g.plan(root.id)
	adjoint := make([]float64, len(p.pending))
	adjoint[root.id] = 1

	for i := len(p.order) - 1; i >= 0; i-- {
		id := p.order[i]
		if p.pending[id] != 0 {
			panic(fmt.Sprintf("autodiff: node %d processed with %d consumers outstanding", id, p.pending[id]))
		}

		n := &g.nodes[id]
		upstream := adjoint[id]
		n.Grad += upstream

		arity := n.Op.Arity()
		if arity == 0 {
			continue
		}

		a := n.Operands[0]
		var bValue float64
		if arity == 2 {
			bValue = g.nodes[n.Operands[1]].Value
		}
		da, db := n.Op.partials(g.nodes[a].Value, bValue, n.Value, n.Param)

		adjoint[a] += upstream * da
		p.pending[a]--
		if arity == 2 {
			b := n.Operands[1]
			adjoint[b] += upstream * db
			p.pending[b]--
		}
	}
}

// TopoOrder returns the nodes reachable from root in the order Backward
// processes them: root first, and every node before all of its operands.
func (g *Graph) TopoOrder(root Value) []Value {
	g.node(root)

	p := g.plan(root.id)
	out := make([]Value, len(p.order))
	for i, id := range p.order {
		out[len(p.order)-1-i] = Value{g: g, id: id, epoch: g.nodes[id].epoch}
	}
	return out
}

// FanOut returns, for each node reachable from root, the number of consumer
// edges leading to it from inside the reachable subgraph. A node used twice
// by the same operation, as in Mul(a, a), counts twice.
func (g *Graph) FanOut(root Value) map[int]int {
	g.node(root)

	p := g.plan(root.id)
	out := make(map[int]int, len(p.order))
	for _, id := range p.order {
		out[int(id)] = int(p.pending[id])
	}
	return out
}
