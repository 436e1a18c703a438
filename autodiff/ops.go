package autodiff

// Add creates a + b
func (g *Graph) Add(a, b Value) Value {
	return g.apply(OpAdd, 0, a, b)
}

// Sub creates a - b
func (g *Graph) Sub(a, b Value) Value {
	return g.apply(OpSub, 0, a, b)
}

// Mul creates a * b
func (g *Graph) Mul(a, b Value) Value {
	return g.apply(OpMul, 0, a, b)
}

// Div creates a / b. Division by zero yields an infinity or NaN that flows
// through the rest of the graph unchecked.
func (g *Graph) Div(a, b Value) Value {
	return g.apply(OpDiv, 0, a, b)
}

// Neg creates -a
func (g *Graph) Neg(a Value) Value {
	return g.apply(OpNeg, 0, a)
}

// Pow creates a^c for a literal exponent c.
func (g *Graph) Pow(a Value, c float64) Value {
	return g.apply(OpPow, c, a)
}

// Exp creates e^a
func (g *Graph) Exp(a Value) Value {
	return g.apply(OpExp, 0, a)
}

// Log2 creates the base-2 logarithm of a
func (g *Graph) Log2(a Value) Value {
	return g.apply(OpLog2, 0, a)
}

// Log creates the natural logarithm of a
func (g *Graph) Log(a Value) Value {
	return g.apply(OpLog, 0, a)
}

// Sum folds values with Add from left to right. It panics on an empty slice.
func (g *Graph) Sum(values []Value) Value {
	if len(values) == 0 {
		panic("autodiff: sum of no values")
	}
	acc := values[0]
	for _, v := range values[1:] {
		acc = g.Add(acc, v)
	}
	return acc
}
