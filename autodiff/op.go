package autodiff

import (
	"math"
)

// OpType identifies the elementary function that produced a node
type OpType int

const (
	OpLeaf OpType = iota // No operation, the node is a leaf

	// Binary operations
	OpAdd
	OpSub
	OpMul
	OpDiv

	// Unary operations
	OpNeg
	OpPow
	OpExp
	OpLog2
	OpLog

	// Activation functions
	OpTanh
	OpReLU
	OpLeakyReLU
	OpSigmoid
)

// DefaultLeakySlope is the negative-side slope used by LeakyReLU.
const DefaultLeakySlope = 0.01

// String returns string representation of the operation type
func (op OpType) String() string {
	switch op {
	case OpLeaf:
		return "leaf"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpNeg:
		return "neg"
	case OpPow:
		return "pow"
	case OpExp:
		return "exp"
	case OpLog2:
		return "log2"
	case OpLog:
		return "log"
	case OpTanh:
		return "tanh"
	case OpReLU:
		return "relu"
	case OpLeakyReLU:
		return "leaky_relu"
	case OpSigmoid:
		return "sigmoid"
	default:
		return "unknown"
	}
}

// Arity returns the number of operands the operation consumes.
func (op OpType) Arity() int {
	switch op {
	case OpLeaf:
		return 0
	case OpAdd, OpSub, OpMul, OpDiv:
		return 2
	case OpNeg, OpPow, OpExp, OpLog2, OpLog, OpTanh, OpReLU, OpLeakyReLU, OpSigmoid:
		return 1
	default:
		panic("autodiff: unknown operation " + op.String())
	}
}

// forward evaluates the operation. b is ignored by unary operations and param
// is only read by pow and leaky relu.
func (op OpType) forward(a, b, param float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpNeg:
		return -a
	case OpPow:
		return math.Pow(a, param)
	case OpExp:
		return math.Exp(a)
	case OpLog2:
		return math.Log2(a)
	case OpLog:
		return math.Log(a)
	case OpTanh:
		return math.Tanh(a)
	case OpReLU:
		if a > 0 {
			return a
		}
		return 0
	case OpLeakyReLU:
		if a > 0 {
			return a
		}
		return param * a
	case OpSigmoid:
		return 1 / (1 + math.Exp(-a))
	default:
		panic("autodiff: no forward rule for " + op.String())
	}
}

// partials returns the local derivatives of the operation with respect to its
// first and second operand. out is the node's own forward value.
func (op OpType) partials(a, b, out, param float64) (da, db float64) {
	switch op {
	case OpAdd:
		return 1, 1
	case OpSub:
		return 1, -1
	case OpMul:
		return b, a
	case OpDiv:
		return 1 / b, -a / (b * b)
	case OpNeg:
		return -1, 0
	case OpPow:
		return param * math.Pow(a, param-1), 0
	case OpExp:
		return out, 0
	case OpLog2:
		return 1 / (a * math.Ln2), 0
	case OpLog:
		return 1 / a, 0
	case OpTanh:
		return 1 - out*out, 0
	case OpReLU:
		if a > 0 {
			return 1, 0
		}
		return 0, 0
	case OpLeakyReLU:
		if a > 0 {
			return 1, 0
		}
		return param, 0
	case OpSigmoid:
		return out * (1 - out), 0
	default:
		panic("autodiff: no backward rule for " + op.String())
	}
}
