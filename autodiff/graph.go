package autodiff

import (
	"fmt"
)

// noOperand marks an unused operand slot.
const noOperand int32 = -1

// Node is a single vertex of the computation graph.
type Node struct {
	Value     float64  // Forward result, fixed at construction for non-leaves
	Grad      float64  // Accumulated gradient
	Trainable bool     // Only trainable leaves are updated by an optimizer
	Op        OpType   // Operation that produced this node (OpLeaf for leaves)
	Operands  [2]int32 // Operand indices, noOperand when unused
	Param     float64  // Literal argument: pow exponent or leaky relu slope

	epoch uint32
}

// IsLeaf reports whether the node has no operands.
func (n Node) IsLeaf() bool {
	return n.Op == OpLeaf
}

// Graph is an arena holding every node of a computation. Operands are
// referenced by index, so a node can be consumed by any number of later nodes
// without shared pointers.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	nodes []Node
	epoch uint32
}

// NewGraph creates an empty computation graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make([]Node, 0, 64),
	}
}

// Len returns the number of nodes currently held by the graph
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Mark returns a position that Truncate can later roll the graph back to.
// Nodes created before the mark (typically the model parameters) survive.
func (g *Graph) Mark() int {
	return len(g.nodes)
}

// Truncate discards every node created after mark. Handles to discarded
// nodes become invalid and panic when used, even if their slot is reused.
func (g *Graph) Truncate(mark int) {
	if mark < 0 || mark > len(g.nodes) {
		panic(fmt.Sprintf("autodiff: truncate mark %d out of range [0, %d]", mark, len(g.nodes)))
	}
	if mark == len(g.nodes) {
		return
	}
	g.nodes = g.nodes[:mark]
	g.epoch++
}

// ZeroGrad zeros the gradient of every node in the graph
func (g *Graph) ZeroGrad() {
	for i := range g.nodes {
		g.nodes[i].Grad = 0
	}
}

// Node returns a copy of the node behind v.
func (g *Graph) Node(v Value) Node {
	return *g.node(v)
}

// Leaf creates a node with no operands and a zero gradient.
func (g *Graph) Leaf(value float64, trainable bool) Value {
	return g.push(Node{
		Value:     value,
		Trainable: trainable,
		Op:        OpLeaf,
		Operands:  [2]int32{noOperand, noOperand},
	})
}

// Const creates a non-trainable leaf.
func (g *Graph) Const(value float64) Value {
	return g.Leaf(value, false)
}

// Leaves creates one leaf per entry of values.
func (g *Graph) Leaves(values []float64, trainable bool) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = g.Leaf(v, trainable)
	}
	return out
}

// apply evaluates op eagerly over its operands and records the result.
func (g *Graph) apply(op OpType, param float64, operands ...Value) Value {
	if len(operands) != op.Arity() {
		panic(fmt.Sprintf("autodiff: %s takes %d operands, got %d", op, op.Arity(), len(operands)))
	}

	n := Node{
		Op:       op,
		Param:    param,
		Operands: [2]int32{noOperand, noOperand},
	}
	var a, b float64
	for i, v := range operands {
		operand := g.node(v)
		n.Operands[i] = v.id
		if i == 0 {
			a = operand.Value
		} else {
			b = operand.Value
		}
	}
	n.Value = op.forward(a, b, param)

	return g.push(n)
}

func (g *Graph) push(n Node) Value {
	if len(g.nodes) >= maxNodes {
		panic(fmt.Sprintf("autodiff: graph exceeds %d nodes", maxNodes))
	}
	n.epoch = g.epoch
	g.nodes = append(g.nodes, n)
	return Value{g: g, id: int32(len(g.nodes) - 1), epoch: g.epoch}
}

const maxNodes = 1<<31 - 1

// node resolves a handle, failing fast on any handle that does not refer to a
// live node of this graph.
func (g *Graph) node(v Value) *Node {
	if v.g == nil {
		panic("autodiff: use of zero Value")
	}
	if v.g != g {
		panic(fmt.Sprintf("autodiff: value %d belongs to a different graph", v.id))
	}
	if v.id < 0 || int(v.id) >= len(g.nodes) || g.nodes[v.id].epoch != v.epoch {
		panic(fmt.Sprintf("autodiff: value %d is stale (graph truncated)", v.id))
	}
	return &g.nodes[v.id]
}

// Value is a handle to a node of a Graph. The zero Value is invalid.
type Value struct {
	g     *Graph
	id    int32
	epoch uint32
}

// Graph returns the graph that owns v.
func (v Value) Graph() *Graph {
	return v.g
}

// ID returns the arena index of v.
func (v Value) ID() int {
	return int(v.id)
}

// Valid reports whether v still refers to a live node.
func (v Value) Valid() bool {
	if v.g == nil || v.id < 0 || int(v.id) >= len(v.g.nodes) {
		return false
	}
	return v.g.nodes[v.id].epoch == v.epoch
}

// Data returns the forward value.
func (v Value) Data() float64 {
	return v.g.node(v).Value
}

// SetData overwrites the value of a leaf. Non-leaf values are fixed at
// construction, so calling SetData on one panics.
func (v Value) SetData(value float64) {
	n := v.g.node(v)
	if n.Op != OpLeaf {
		panic(fmt.Sprintf("autodiff: cannot set data of %s node %d", n.Op, v.id))
	}
	n.Value = value
}

// Grad returns the accumulated gradient.
func (v Value) Grad() float64 {
	return v.g.node(v).Grad
}

// ZeroGrad resets the accumulated gradient to zero.
func (v Value) ZeroGrad() {
	v.g.node(v).Grad = 0
}

// Trainable reports whether an optimizer may update v.
func (v Value) Trainable() bool {
	return v.g.node(v).Trainable
}

// Op returns the operation that produced v.
func (v Value) Op() OpType {
	return v.g.node(v).Op
}

// IsLeaf reports whether v has no operands.
func (v Value) IsLeaf() bool {
	return v.g.node(v).Op == OpLeaf
}

// Operands returns handles to the nodes v was built from.
func (v Value) Operands() []Value {
	n := v.g.node(v)
	out := make([]Value, 0, 2)
	for _, id := range n.Operands[:n.Op.Arity()] {
		out = append(out, Value{g: v.g, id: id, epoch: v.g.nodes[id].epoch})
	}
	return out
}

// Backward runs the backward pass with v as the root.
func (v Value) Backward() {
	if v.g == nil {
		panic("autodiff: backward on zero Value")
	}
	v.g.Backward(v)
}

func (v Value) String() string {
	if !v.Valid() {
		return "Value(invalid)"
	}
	n := v.g.nodes[v.id]
	return fmt.Sprintf("Value(id=%d, op=%s, data=%g, grad=%g)", v.id, n.Op, n.Value, n.Grad)
}
