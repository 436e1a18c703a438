// Package train runs mini-batch gradient descent over networks built on the
// autodiff engine and records the progress of each run.
package train

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tsawler/scalargrad/nn"
	"github.com/tsawler/scalargrad/optimizer"
)

// SchedulerType represents different learning rate scheduler types
type SchedulerType int

const (
	NoScheduler SchedulerType = iota
	StepLR
	ExponentialLR
	CosineAnnealingLR
)

// String returns string representation of scheduler type
func (s SchedulerType) String() string {
	switch s {
	case NoScheduler:
		return "none"
	case StepLR:
		return "step"
	case ExponentialLR:
		return "exp"
	case CosineAnnealingLR:
		return "cosine"
	default:
		return "unknown"
	}
}

// ParseScheduler maps a name such as "step" or "cosine" to a SchedulerType
func ParseScheduler(name string) (SchedulerType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "constant":
		return NoScheduler, nil
	case "step":
		return StepLR, nil
	case "exp", "exponential":
		return ExponentialLR, nil
	case "cosine":
		return CosineAnnealingLR, nil
	default:
		return 0, errors.Errorf("unknown scheduler %q", name)
	}
}

// Config contains configuration for a training run
type Config struct {
	// Training parameters
	Epochs       int
	LearningRate float64
	BatchSize    int
	Seed         uint64

	// Network shape
	Hidden     int
	Activation nn.Activation

	// Scheduler settings, stepped once per epoch
	Scheduler         SchedulerType
	SchedulerGamma    float64 // Decay factor for step/exponential schedulers
	SchedulerStepSize int     // Epochs between decays
	MinLearningRate   float64 // Floor for cosine annealing

	LogEvery      int    // Log every N epochs (0 = never)
	HistoryPath   string // SQLite file to record the run in ("" = disabled)
	CheckpointDir string // Directory to save the final checkpoint in ("" = disabled)
	Resume        bool   // Load CheckpointDir before training
}

// DefaultConfig returns the configuration of the network demo
func DefaultConfig() *Config {
	return &Config{
		Epochs:            100,
		LearningRate:      0.1,
		BatchSize:         1,
		Seed:              1,
		Hidden:            10,
		Activation:        nn.ReLU,
		Scheduler:         NoScheduler,
		SchedulerGamma:    0.5,
		SchedulerStepSize: 30,
		MinLearningRate:   0.001,
		LogEvery:          10,
	}
}

// Validate checks the configuration for values training cannot run with
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("training config cannot be nil")
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if !(c.LearningRate > 0) {
		return errors.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Hidden <= 0 {
		return errors.Errorf("hidden layer size must be positive, got %d", c.Hidden)
	}
	if c.LogEvery < 0 {
		return errors.Errorf("log interval cannot be negative, got %d", c.LogEvery)
	}

	if c.Resume && c.CheckpointDir == "" {
		return errors.New("resume requires a checkpoint directory")
	}

	switch c.Scheduler {
	case NoScheduler:
	case StepLR, ExponentialLR:
		if !(c.SchedulerGamma > 0 && c.SchedulerGamma <= 1) {
			return errors.Errorf("%s scheduler gamma must be in (0, 1], got %g", c.Scheduler, c.SchedulerGamma)
		}
		if c.SchedulerStepSize <= 0 {
			return errors.Errorf("%s scheduler step size must be positive, got %d", c.Scheduler, c.SchedulerStepSize)
		}
	case CosineAnnealingLR:
		if !(c.MinLearningRate >= 0 && c.MinLearningRate <= c.LearningRate) {
			return errors.Errorf("cosine minimum learning rate must be in [0, %g], got %g", c.LearningRate, c.MinLearningRate)
		}
	default:
		return errors.Errorf("unknown scheduler type %d", c.Scheduler)
	}
	return nil
}

// newScheduler builds the configured learning rate scheduler, or nil
func (c *Config) newScheduler() optimizer.LRScheduler {
	switch c.Scheduler {
	case StepLR:
		return optimizer.NewStepDecayScheduler(c.LearningRate, c.SchedulerGamma, int64(c.SchedulerStepSize))
	case ExponentialLR:
		return optimizer.NewExponentialDecayScheduler(c.LearningRate, c.SchedulerGamma, int64(c.SchedulerStepSize))
	case CosineAnnealingLR:
		return optimizer.NewCosineAnnealingScheduler(c.LearningRate, c.MinLearningRate, int64(c.Epochs))
	default:
		return nil
	}
}
