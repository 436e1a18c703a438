package nn

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tsawler/scalargrad/autodiff"
)

// Activation represents an elementwise activation function
type Activation int

const (
	ReLU Activation = iota
	LeakyReLU
	Tanh
	Sigmoid
	Identity
)

// String returns string representation of activation type
func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case LeakyReLU:
		return "leaky_relu"
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	case Identity:
		return "identity"
	default:
		return "unknown"
	}
}

// Apply adds the activation of x to g
func (a Activation) Apply(g *autodiff.Graph, x autodiff.Value) autodiff.Value {
	switch a {
	case ReLU:
		return g.ReLU(x)
	case LeakyReLU:
		return g.LeakyReLU(x)
	case Tanh:
		return g.Tanh(x)
	case Sigmoid:
		return g.Sigmoid(x)
	case Identity:
		return x
	default:
		panic("nn: unknown activation " + a.String())
	}
}

// ParseActivation maps a name such as "relu" or "tanh" to an Activation
func ParseActivation(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "relu":
		return ReLU, nil
	case "leaky_relu", "leakyrelu", "leaky-relu":
		return LeakyReLU, nil
	case "tanh":
		return Tanh, nil
	case "sigmoid":
		return Sigmoid, nil
	case "identity", "linear", "none":
		return Identity, nil
	default:
		return 0, errors.Errorf("unknown activation %q", name)
	}
}
