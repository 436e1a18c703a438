package autodiff

import (
	"testing"

	"gonum.org/v1/gonum/graph/topo"
)

func TestBackwardEndToEnd(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(1, true)
	b := g.Leaf(2, true)
	e := g.Add(g.Pow(a, 2), g.Pow(b, 2))

	e.Backward()

	if a.Grad() != 2.0 {
		t.Errorf("expected a.grad = 2, got %v", a.Grad())
	}
	if b.Grad() != 4.0 {
		t.Errorf("expected b.grad = 4, got %v", b.Grad())
	}
	if e.Grad() != 1.0 {
		t.Errorf("root should receive the seed adjoint 1, got %v", e.Grad())
	}
}

func TestBackwardFanOut(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(3, true)
	y := g.Mul(a, a)

	y.Backward()

	if a.Grad() != 6 {
		t.Errorf("expected a.grad = 2 * a = 6, got %v", a.Grad())
	}
}

func TestBackwardSharedIntermediate(t *testing.T) {
	// c is consumed by three different nodes. Its operands must see the
	// total adjoint of c exactly once.
	g := NewGraph()
	a := g.Leaf(2, true)
	b := g.Leaf(-1, true)
	c := g.Mul(a, b) // -2
	d := g.Add(c, c) // 2c
	e := g.Mul(c, d) // 2c^2
	f := g.Add(e, c) // 2c^2 + c
	out := g.Tanh(f) // tanh(2c^2 + c)
	dOut := 1 - out.Data()*out.Data()

	out.Backward()

	dc := dOut * (4*c.Data() + 1)
	if !approxEqual(c.Grad(), dc, 1e-12) {
		t.Errorf("expected c.grad = %v, got %v", dc, c.Grad())
	}
	if !approxEqual(a.Grad(), dc*b.Data(), 1e-12) {
		t.Errorf("expected a.grad = %v, got %v", dc*b.Data(), a.Grad())
	}
	if !approxEqual(b.Grad(), dc*a.Data(), 1e-12) {
		t.Errorf("expected b.grad = %v, got %v", dc*a.Data(), b.Grad())
	}
	if !approxEqual(d.Grad(), dOut*c.Data(), 1e-12) {
		t.Errorf("expected d.grad = %v, got %v", dOut*c.Data(), d.Grad())
	}
}

func TestBackwardAdditivity(t *testing.T) {
	f := func(g *Graph, a, b Value) Value { return g.Mul(g.Tanh(a), g.Exp(b)) }
	h := func(g *Graph, c, d Value) Value { return g.Div(g.Pow(c, 3), g.Add(d, g.Const(2))) }
	x := []float64{0.4, -0.3, 1.1, 0.6}

	combined := AnalyticGradient(func(g *Graph, in []Value) Value {
		return g.Add(f(g, in[0], in[1]), h(g, in[2], in[3]))
	}, x)
	left := AnalyticGradient(func(g *Graph, in []Value) Value {
		return f(g, in[0], in[1])
	}, x[:2])
	right := AnalyticGradient(func(g *Graph, in []Value) Value {
		return h(g, in[0], in[1])
	}, x[2:])

	separate := append(left, right...)
	for i := range combined {
		if combined[i] != separate[i] {
			t.Errorf("input %d: combined %v, separate %v", i, combined[i], separate[i])
		}
	}
}

func TestBackwardDeterminism(t *testing.T) {
	build := func() (*Graph, []Value, Value) {
		g := NewGraph()
		in := g.Leaves([]float64{0.3, -1.2, 2.5}, true)
		probs := g.Softmax(in)
		loss := g.Neg(g.Log(probs[1]))
		return g, in, loss
	}

	_, in1, loss1 := build()
	_, in2, loss2 := build()
	if loss1.Data() != loss2.Data() {
		t.Fatalf("forward not deterministic: %v vs %v", loss1.Data(), loss2.Data())
	}

	loss1.Backward()
	loss2.Backward()
	for i := range in1 {
		if in1[i].Grad() != in2[i].Grad() {
			t.Errorf("input %d: gradients differ %v vs %v", i, in1[i].Grad(), in2[i].Grad())
		}
	}
}

func TestZeroGradReset(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(1.5, true)
	b := g.Leaf(-0.5, true)
	y := g.Tanh(g.Mul(g.Add(a, b), a))

	y.Backward()
	firstA, firstB := a.Grad(), b.Grad()
	if firstA == 0 || firstB == 0 {
		t.Fatalf("expected nonzero gradients, got %v %v", firstA, firstB)
	}

	a.ZeroGrad()
	b.ZeroGrad()
	if a.Grad() != 0 || b.Grad() != 0 {
		t.Fatalf("ZeroGrad should reset to exactly 0, got %v %v", a.Grad(), b.Grad())
	}

	g.ZeroGrad()
	y.Backward()
	if a.Grad() != firstA || b.Grad() != firstB {
		t.Errorf("second pass after reset gave %v %v, want %v %v", a.Grad(), b.Grad(), firstA, firstB)
	}

	// A fresh graph with the same values must agree.
	fresh := AnalyticGradient(func(g *Graph, in []Value) Value {
		return g.Tanh(g.Mul(g.Add(in[0], in[1]), in[0]))
	}, []float64{1.5, -0.5})
	if fresh[0] != firstA || fresh[1] != firstB {
		t.Errorf("fresh graph gave %v, want [%v %v]", fresh, firstA, firstB)
	}
}

func TestBackwardAccumulatesAcrossPasses(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(3, true)
	y := g.Mul(g.Mul(a, a), g.Const(2)) // 2a^2

	y.Backward()
	y.Backward()

	if a.Grad() != 24 {
		t.Errorf("two passes should sum to 2 * 12 = 24, got %v", a.Grad())
	}
}

func TestBackwardFromLeaf(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(7, true)
	a.Backward()
	if a.Grad() != 1 {
		t.Errorf("expected grad 1 on a leaf root, got %v", a.Grad())
	}
}

func TestBackwardDeepChain(t *testing.T) {
	g := NewGraph()
	x := g.Leaf(0.5, true)
	acc := g.Const(0)
	const depth = 200000
	for i := 0; i < depth; i++ {
		acc = g.Add(acc, x)
	}

	acc.Backward()

	if x.Grad() != depth {
		t.Errorf("expected grad %d, got %v", depth, x.Grad())
	}
}

func TestBackwardOnlyTouchesReachableNodes(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(2, true)
	b := g.Leaf(3, true)
	unrelated := g.Mul(a, b)
	y := g.Pow(a, 2)

	y.Backward()

	if b.Grad() != 0 || unrelated.Grad() != 0 {
		t.Errorf("unreachable nodes received gradient: b=%v unrelated=%v", b.Grad(), unrelated.Grad())
	}
	if a.Grad() != 4 {
		t.Errorf("expected a.grad = 4, got %v", a.Grad())
	}
}

func TestTopoOrder(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(1, true)
	b := g.Leaf(2, true)
	c := g.Mul(a, b)
	d := g.Add(c, a)
	e := g.Mul(d, c)

	order := g.TopoOrder(e)
	if len(order) != 5 {
		t.Fatalf("expected 5 reachable nodes, got %d", len(order))
	}
	if order[0].ID() != e.ID() {
		t.Errorf("root must come first, got %v", order[0])
	}

	pos := make(map[int]int, len(order))
	for i, v := range order {
		pos[v.ID()] = i
	}
	for _, v := range order {
		for _, operand := range v.Operands() {
			if pos[v.ID()] >= pos[operand.ID()] {
				t.Errorf("node %d must precede its operand %d", v.ID(), operand.ID())
			}
		}
	}

	fan := g.FanOut(e)
	expected := map[int]int{e.ID(): 0, d.ID(): 1, c.ID(): 2, a.ID(): 2, b.ID(): 1}
	for id, want := range expected {
		if fan[id] != want {
			t.Errorf("node %d: expected fan-out %d, got %d", id, want, fan[id])
		}
	}
}

func TestSubgraphMatchesGonumTopology(t *testing.T) {
	g := NewGraph()
	in := g.Leaves([]float64{0.1, 0.2, 0.3}, true)
	probs := g.Softmax(in)
	loss := g.Mul(probs[0], probs[0])

	dg := Subgraph(loss)
	sorted, err := topo.Sort(dg)
	if err != nil {
		t.Fatalf("subgraph should be acyclic: %v", err)
	}

	order := g.TopoOrder(loss)
	if len(sorted) != len(order) {
		t.Fatalf("gonum sees %d nodes, backward order has %d", len(sorted), len(order))
	}

	pos := make(map[int64]int, len(order))
	for i, v := range order {
		pos[int64(v.ID())] = i
	}
	edges := dg.Edges()
	for edges.Next() {
		e := edges.Edge()
		if pos[e.From().ID()] >= pos[e.To().ID()] {
			t.Errorf("edge %d -> %d violated by backward order", e.From().ID(), e.To().ID())
		}
	}
}

func TestTruncateDiscardsTransientNodes(t *testing.T) {
	g := NewGraph()
	w := g.Leaf(0.5, true)
	mark := g.Mark()

	x := g.Const(2)
	y := g.Mul(w, x)
	y.Backward()
	if w.Grad() != 2 {
		t.Fatalf("expected w.grad = 2, got %v", w.Grad())
	}

	g.Truncate(mark)
	if g.Len() != mark {
		t.Fatalf("expected %d nodes after truncate, got %d", mark, g.Len())
	}
	if !w.Valid() || w.Data() != 0.5 {
		t.Errorf("persistent leaf should survive truncate")
	}
	if y.Valid() || x.Valid() {
		t.Errorf("transient handles should be invalid after truncate")
	}

	// The slot of x is reused by a new node; the old handle must not alias it.
	fresh := g.Const(9)
	if fresh.ID() != x.ID() {
		t.Fatalf("expected slot reuse, got id %d", fresh.ID())
	}
	assertPanics(t, "stale data", func() { x.Data() })
	assertPanics(t, "stale backward", func() { y.Backward() })
}

func TestInvalidHandlesPanic(t *testing.T) {
	g := NewGraph()
	other := NewGraph()
	a := g.Leaf(1, true)
	foreign := other.Leaf(2, true)

	assertPanics(t, "zero value backward", func() { Value{}.Backward() })
	assertPanics(t, "zero value data", func() { Value{}.Data() })
	assertPanics(t, "foreign operand", func() { g.Add(a, foreign) })
	assertPanics(t, "foreign backward", func() { g.Backward(foreign) })
	assertPanics(t, "truncate beyond end", func() { g.Truncate(5) })
	assertPanics(t, "set data on op", func() { g.Neg(a).SetData(3) })
}

func TestSetDataOnLeaf(t *testing.T) {
	g := NewGraph()
	a := g.Leaf(1, true)
	a.SetData(4)
	if g.Pow(a, 2).Data() != 16 {
		t.Errorf("new nodes should see updated leaf value")
	}
}
