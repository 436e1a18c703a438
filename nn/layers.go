package nn

import (
	"fmt"

	"github.com/tsawler/scalargrad/autodiff"
	"gonum.org/v1/gonum/mat"
)

// Layer is anything that maps an input vector to an output vector through
// trainable parameters.
type Layer interface {
	Parameters() []autodiff.Value
	Forward(inputs []autodiff.Value) []autodiff.Value
}

// Neuron holds one weight per input plus a bias
type Neuron struct {
	g       *autodiff.Graph
	weights []autodiff.Value
	bias    autodiff.Value
}

// NewNeuron creates a neuron with inputSize trainable weights and a trainable bias
func NewNeuron(g *autodiff.Graph, inputSize int, initializer *Initializer) *Neuron {
	if inputSize <= 0 {
		panic(fmt.Sprintf("nn: neuron needs at least one input, got %d", inputSize))
	}
	weights := make([]autodiff.Value, inputSize)
	for i := range weights {
		weights[i] = g.Leaf(initializer.Next(), true)
	}
	return &Neuron{
		g:       g,
		weights: weights,
		bias:    g.Leaf(initializer.Next(), true),
	}
}

// Forward builds sum(w_i * x_i) + b as a fresh subgraph
func (n *Neuron) Forward(inputs []autodiff.Value) autodiff.Value {
	if len(inputs) != len(n.weights) {
		panic(fmt.Sprintf("nn: neuron expects %d inputs, got %d", len(n.weights), len(inputs)))
	}
	products := make([]autodiff.Value, len(inputs))
	for i, x := range inputs {
		products[i] = n.g.Mul(n.weights[i], x)
	}
	return n.g.Add(n.g.Sum(products), n.bias)
}

// Parameters returns the weights followed by the bias
func (n *Neuron) Parameters() []autodiff.Value {
	params := make([]autodiff.Value, 0, len(n.weights)+1)
	params = append(params, n.weights...)
	return append(params, n.bias)
}

// InputSize returns the number of weights
func (n *Neuron) InputSize() int {
	return len(n.weights)
}

// Linear represents a fully connected layer
type Linear struct {
	neurons []*Neuron

	InputSize  int
	OutputSize int
}

// NewLinear creates a new linear layer
func NewLinear(g *autodiff.Graph, inputSize, outputSize int, initializer *Initializer) *Linear {
	if outputSize <= 0 {
		panic(fmt.Sprintf("nn: linear layer needs at least one output, got %d", outputSize))
	}
	neurons := make([]*Neuron, outputSize)
	for i := range neurons {
		neurons[i] = NewNeuron(g, inputSize, initializer)
	}
	return &Linear{
		neurons:    neurons,
		InputSize:  inputSize,
		OutputSize: outputSize,
	}
}

// Forward maps the input vector to one output node per neuron
func (l *Linear) Forward(inputs []autodiff.Value) []autodiff.Value {
	if len(inputs) != l.InputSize {
		panic(fmt.Sprintf("nn: linear layer expects %d inputs, got %d", l.InputSize, len(inputs)))
	}
	outputs := make([]autodiff.Value, len(l.neurons))
	for i, n := range l.neurons {
		outputs[i] = n.Forward(inputs)
	}
	return outputs
}

// Parameters returns every neuron's weights then bias, neuron by neuron
func (l *Linear) Parameters() []autodiff.Value {
	params := make([]autodiff.Value, 0, l.OutputSize*(l.InputSize+1))
	for _, n := range l.neurons {
		params = append(params, n.Parameters()...)
	}
	return params
}

// Weights returns a snapshot of the weights as an OutputSize x InputSize matrix
func (l *Linear) Weights() *mat.Dense {
	w := mat.NewDense(l.OutputSize, l.InputSize, nil)
	for i, n := range l.neurons {
		for j, wv := range n.weights {
			w.Set(i, j, wv.Data())
		}
	}
	return w
}

// Bias returns a snapshot of the biases
func (l *Linear) Bias() []float64 {
	b := make([]float64, l.OutputSize)
	for i, n := range l.neurons {
		b[i] = n.bias.Data()
	}
	return b
}

// SetWeights overwrites the weights and biases in place
func (l *Linear) SetWeights(w mat.Matrix, bias []float64) {
	rows, cols := w.Dims()
	if rows != l.OutputSize || cols != l.InputSize {
		panic(fmt.Sprintf("nn: weight matrix is %dx%d, layer needs %dx%d", rows, cols, l.OutputSize, l.InputSize))
	}
	if len(bias) != l.OutputSize {
		panic(fmt.Sprintf("nn: got %d biases, layer needs %d", len(bias), l.OutputSize))
	}
	for i, n := range l.neurons {
		for j, wv := range n.weights {
			wv.SetData(w.At(i, j))
		}
		n.bias.SetData(bias[i])
	}
}

// Network composes two linear layers with an elementwise activation between them
type Network struct {
	Hidden     *Linear
	Output     *Linear
	Activation Activation

	g *autodiff.Graph
}

// NewNetwork creates an inputSize -> hiddenSize -> outputSize network
func NewNetwork(g *autodiff.Graph, inputSize, hiddenSize, outputSize int, act Activation, initializer *Initializer) *Network {
	return &Network{
		Hidden:     NewLinear(g, inputSize, hiddenSize, initializer),
		Output:     NewLinear(g, hiddenSize, outputSize, initializer),
		Activation: act,
		g:          g,
	}
}

// Forward rebuilds the whole network graph over inputs
func (net *Network) Forward(inputs []autodiff.Value) []autodiff.Value {
	x := net.Hidden.Forward(inputs)
	for i := range x {
		x[i] = net.Activation.Apply(net.g, x[i])
	}
	return net.Output.Forward(x)
}

// Parameters returns the hidden layer's parameters followed by the output layer's
func (net *Network) Parameters() []autodiff.Value {
	return append(net.Hidden.Parameters(), net.Output.Parameters()...)
}
