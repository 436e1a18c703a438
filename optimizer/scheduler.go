package optimizer

import (
	"math"
)

// LRScheduler represents a learning rate scheduler interface. Every parameter
// still shares one learning rate; a scheduler only changes it between steps.
type LRScheduler interface {
	Step(step int64)
	GetLR() float64
	SetOptimizer(opt Optimizer)
}

// ConstantScheduler keeps the learning rate fixed
type ConstantScheduler struct {
	optimizer Optimizer
	lr        float64
}

// NewConstantScheduler creates a scheduler that never changes the learning rate
func NewConstantScheduler(lr float64) *ConstantScheduler {
	return &ConstantScheduler{lr: lr}
}

// Step re-applies the fixed learning rate
func (s *ConstantScheduler) Step(step int64) {
	if s.optimizer != nil {
		s.optimizer.SetLearningRate(s.lr)
	}
}

// GetLR returns the current learning rate
func (s *ConstantScheduler) GetLR() float64 {
	return s.lr
}

// SetOptimizer sets the optimizer to update
func (s *ConstantScheduler) SetOptimizer(opt Optimizer) {
	s.optimizer = opt
}

// ExponentialDecayScheduler implements exponential decay learning rate scheduling
type ExponentialDecayScheduler struct {
	optimizer  Optimizer
	initialLR  float64
	decayRate  float64
	decaySteps int64
	currentLR  float64
}

// NewExponentialDecayScheduler creates a new exponential decay scheduler
func NewExponentialDecayScheduler(initialLR, decayRate float64, decaySteps int64) *ExponentialDecayScheduler {
	if decaySteps <= 0 {
		decaySteps = 1
	}
	return &ExponentialDecayScheduler{
		initialLR:  initialLR,
		decayRate:  decayRate,
		decaySteps: decaySteps,
		currentLR:  initialLR,
	}
}

// Step sets lr = initialLR * decayRate^(step/decaySteps)
func (s *ExponentialDecayScheduler) Step(step int64) {
	s.currentLR = s.initialLR * math.Pow(s.decayRate, float64(step)/float64(s.decaySteps))
	if s.optimizer != nil {
		s.optimizer.SetLearningRate(s.currentLR)
	}
}

// GetLR returns the current learning rate
func (s *ExponentialDecayScheduler) GetLR() float64 {
	return s.currentLR
}

// SetOptimizer sets the optimizer to update
func (s *ExponentialDecayScheduler) SetOptimizer(opt Optimizer) {
	s.optimizer = opt
}

// StepDecayScheduler implements step decay learning rate scheduling
type StepDecayScheduler struct {
	optimizer Optimizer
	initialLR float64
	gamma     float64
	stepSize  int64
	currentLR float64
}

// NewStepDecayScheduler creates a new step decay scheduler
func NewStepDecayScheduler(initialLR, gamma float64, stepSize int64) *StepDecayScheduler {
	if stepSize <= 0 {
		stepSize = 1
	}
	return &StepDecayScheduler{
		initialLR: initialLR,
		gamma:     gamma,
		stepSize:  stepSize,
		currentLR: initialLR,
	}
}

// Step multiplies the initial rate by gamma once per completed stepSize steps
func (s *StepDecayScheduler) Step(step int64) {
	s.currentLR = s.initialLR * math.Pow(s.gamma, float64(step/s.stepSize))
	if s.optimizer != nil {
		s.optimizer.SetLearningRate(s.currentLR)
	}
}

// GetLR returns the current learning rate
func (s *StepDecayScheduler) GetLR() float64 {
	return s.currentLR
}

// SetOptimizer sets the optimizer to update
func (s *StepDecayScheduler) SetOptimizer(opt Optimizer) {
	s.optimizer = opt
}

// CosineAnnealingScheduler implements cosine annealing learning rate scheduling
type CosineAnnealingScheduler struct {
	optimizer  Optimizer
	initialLR  float64
	minLR      float64
	totalSteps int64
	currentLR  float64
}

// NewCosineAnnealingScheduler creates a new cosine annealing scheduler
func NewCosineAnnealingScheduler(initialLR, minLR float64, totalSteps int64) *CosineAnnealingScheduler {
	if totalSteps <= 0 {
		totalSteps = 1
	}
	return &CosineAnnealingScheduler{
		initialLR:  initialLR,
		minLR:      minLR,
		totalSteps: totalSteps,
		currentLR:  initialLR,
	}
}

// Step follows half a cosine from initialLR down to minLR, then holds minLR
func (s *CosineAnnealingScheduler) Step(step int64) {
	if step > s.totalSteps {
		step = s.totalSteps
	}
	progress := float64(step) / float64(s.totalSteps)
	s.currentLR = s.minLR + 0.5*(s.initialLR-s.minLR)*(1+math.Cos(math.Pi*progress))
	if s.optimizer != nil {
		s.optimizer.SetLearningRate(s.currentLR)
	}
}

// GetLR returns the current learning rate
func (s *CosineAnnealingScheduler) GetLR() float64 {
	return s.currentLR
}

// SetOptimizer sets the optimizer to update
func (s *CosineAnnealingScheduler) SetOptimizer(opt Optimizer) {
	s.optimizer = opt
}
