package optimizer

import (
	"fmt"

	"github.com/tsawler/scalargrad/autodiff"
)

// Optimizer represents a generic optimizer interface
type Optimizer interface {
	Step()
	ZeroGrad()
	GetLearningRate() float64
	SetLearningRate(lr float64)
	GetStepCount() int64
}

// SGDConfig holds configuration for plain gradient descent
type SGDConfig struct {
	LearningRate float64
	BatchSize    int // Gradients are divided by this; 0 means 1
}

// SGDOptimizer applies value -= (lr / batchSize) * grad to every trainable
// parameter. It has no momentum and no weight decay.
type SGDOptimizer struct {
	params    []autodiff.Value
	config    SGDConfig
	stepCount int64
}

// New creates an SGD optimizer over params. The optional batchSize defaults to 1.
func New(params []autodiff.Value, learningRate float64, batchSize ...int) *SGDOptimizer {
	if len(batchSize) > 1 {
		panic(fmt.Sprintf("optimizer: at most one batch size, got %d", len(batchSize)))
	}
	cfg := SGDConfig{LearningRate: learningRate}
	if len(batchSize) == 1 {
		cfg.BatchSize = batchSize[0]
	}
	return NewSGD(params, cfg)
}

// NewSGD creates a new SGD optimizer
func NewSGD(params []autodiff.Value, config SGDConfig) *SGDOptimizer {
	if len(params) == 0 {
		panic("optimizer: no parameters to optimize")
	}
	for i, p := range params {
		if !p.Valid() {
			panic(fmt.Sprintf("optimizer: parameter %d is not a live graph value", i))
		}
		if !p.IsLeaf() {
			panic(fmt.Sprintf("optimizer: parameter %d is a %s node, not a leaf", i, p.Op()))
		}
	}
	if !(config.LearningRate > 0) {
		panic(fmt.Sprintf("optimizer: learning rate must be positive, got %g", config.LearningRate))
	}
	if config.BatchSize < 0 {
		panic(fmt.Sprintf("optimizer: negative batch size %d", config.BatchSize))
	}
	if config.BatchSize == 0 {
		config.BatchSize = 1
	}

	held := make([]autodiff.Value, len(params))
	copy(held, params)
	return &SGDOptimizer{
		params: held,
		config: config,
	}
}

// Step performs one optimization step
func (opt *SGDOptimizer) Step() {
	scale := opt.config.LearningRate / float64(opt.config.BatchSize)
	for _, p := range opt.params {
		if !p.Trainable() {
			continue
		}
		p.SetData(p.Data() - scale*p.Grad())
	}
	opt.stepCount++
}

// ZeroGrad zeros the gradient of every held parameter
func (opt *SGDOptimizer) ZeroGrad() {
	for _, p := range opt.params {
		p.ZeroGrad()
	}
}

// Parameters returns the parameters in the order they were given
func (opt *SGDOptimizer) Parameters() []autodiff.Value {
	out := make([]autodiff.Value, len(opt.params))
	copy(out, opt.params)
	return out
}

// BatchSize returns the divisor applied to every gradient
func (opt *SGDOptimizer) BatchSize() int {
	return opt.config.BatchSize
}

// SetBatchSize changes the divisor applied to every gradient, for example
// when a final batch holds fewer samples than the configured size
func (opt *SGDOptimizer) SetBatchSize(n int) {
	if n <= 0 {
		panic(fmt.Sprintf("optimizer: batch size must be positive, got %d", n))
	}
	opt.config.BatchSize = n
}

// GetLearningRate returns the current learning rate
func (opt *SGDOptimizer) GetLearningRate() float64 {
	return opt.config.LearningRate
}

// SetLearningRate sets the learning rate
func (opt *SGDOptimizer) SetLearningRate(lr float64) {
	if !(lr >= 0) {
		panic(fmt.Sprintf("optimizer: learning rate must not be negative, got %g", lr))
	}
	opt.config.LearningRate = lr
}

// GetStepCount returns the current step count
func (opt *SGDOptimizer) GetStepCount() int64 {
	return opt.stepCount
}
