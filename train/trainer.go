package train

import (
	"fmt"
	"log"
	"math"

	"github.com/pkg/errors"
	"github.com/tsawler/scalargrad/autodiff"
	"github.com/tsawler/scalargrad/dataset"
	"github.com/tsawler/scalargrad/nn"
	"github.com/tsawler/scalargrad/optimizer"
	"gonum.org/v1/gonum/floats"
)

// Model is anything the trainer can fit: a forward pass that rebuilds its
// graph on every call and a fixed list of parameter leaves.
type Model interface {
	Forward(inputs []autodiff.Value) []autodiff.Value
	Parameters() []autodiff.Value
}

// LossFunc reduces a prediction against its targets to one scalar node
type LossFunc func(g *autodiff.Graph, predictions, targets []autodiff.Value) autodiff.Value

// Metrics tracks training progress, one entry per epoch
type Metrics struct {
	Losses        []float64
	GradientNorms []float64
	LearningRates []float64
}

// LastLoss returns the loss of the most recent epoch, or NaN before any epoch
func (m *Metrics) LastLoss() float64 {
	if len(m.Losses) == 0 {
		return math.NaN()
	}
	return m.Losses[len(m.Losses)-1]
}

// BestLoss returns the lowest epoch loss and its zero-based epoch
func (m *Metrics) BestLoss() (float64, int) {
	if len(m.Losses) == 0 {
		return math.NaN(), -1
	}
	i := floats.MinIdx(m.Losses)
	return m.Losses[i], i
}

// Trainer owns the optimizer and the graph lifecycle of a training run
type Trainer struct {
	Config    *Config
	Graph     *autodiff.Graph
	Model     Model
	Loss      LossFunc
	Optimizer *optimizer.SGDOptimizer
	Scheduler optimizer.LRScheduler
	Metrics   *Metrics
	Logger    *log.Logger
	History   *History

	// Callbacks
	OnEpochEnd func(epoch int, metrics *Metrics) error

	mark  int
	epoch int
	runID int64
}

// NewTrainer creates a trainer for model, whose parameters must already live
// in g. Every node created after this call is discarded after each batch.
func NewTrainer(config *Config, g *autodiff.Graph, model Model) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid training config")
	}
	if g == nil {
		return nil, errors.New("graph cannot be nil")
	}
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}
	params := model.Parameters()
	if len(params) == 0 {
		return nil, errors.New("model has no parameters")
	}

	trainer := &Trainer{
		Config:    config,
		Graph:     g,
		Model:     model,
		Loss:      nn.MSE,
		Optimizer: optimizer.New(params, config.LearningRate, config.BatchSize),
		Metrics:   &Metrics{},
		mark:      g.Mark(),
	}
	if s := config.newScheduler(); s != nil {
		s.SetOptimizer(trainer.Optimizer)
		trainer.Scheduler = s
	}
	return trainer, nil
}

// Train runs passes over samples until Config.Epochs epochs have completed,
// continuing from the last completed epoch. Each batch builds the graph of
// every sample, sums their losses, runs one backward pass and one optimizer
// step, then zeroes the gradients and truncates the graph.
func (t *Trainer) Train(samples []dataset.Sample) error {
	if len(samples) == 0 {
		return errors.New("no training samples")
	}
	if t.History != nil && t.runID == 0 {
		id, err := t.History.StartRun(t.Config)
		if err != nil {
			return errors.Wrap(err, "failed to start history run")
		}
		t.runID = id
	}

	batches := dataset.Batches(samples, t.Config.BatchSize)
	for epoch := t.epoch; epoch < t.Config.Epochs; epoch++ {
		if t.Scheduler != nil {
			t.Scheduler.Step(int64(epoch))
		}

		var epochLoss, epochNorm float64
		for _, batch := range batches {
			loss, norm := t.trainBatch(batch)
			epochLoss += loss
			epochNorm += norm
		}
		epochLoss /= float64(len(samples))
		epochNorm /= float64(len(batches))

		lr := t.Optimizer.GetLearningRate()
		t.Metrics.Losses = append(t.Metrics.Losses, epochLoss)
		t.Metrics.GradientNorms = append(t.Metrics.GradientNorms, epochNorm)
		t.Metrics.LearningRates = append(t.Metrics.LearningRates, lr)

		if t.Logger != nil && t.Config.LogEvery > 0 && (epoch+1)%t.Config.LogEvery == 0 {
			t.Logger.Printf("epoch %d/%d: loss=%.6f grad_norm=%.6f lr=%g",
				epoch+1, t.Config.Epochs, epochLoss, epochNorm, lr)
		}
		if t.History != nil {
			if err := t.History.LogEpoch(t.runID, epoch, epochLoss, epochNorm, lr); err != nil {
				return errors.Wrapf(err, "failed to record epoch %d", epoch)
			}
		}
		t.epoch = epoch + 1
		if t.OnEpochEnd != nil {
			if err := t.OnEpochEnd(epoch, t.Metrics); err != nil {
				return errors.Wrapf(err, "epoch %d callback failed", epoch)
			}
		}
	}
	return nil
}

// trainBatch performs one optimizer step and returns the summed loss and the
// gradient norm over the parameters.
func (t *Trainer) trainBatch(batch []dataset.Sample) (float64, float64) {
	defer t.Graph.Truncate(t.mark)

	losses := make([]autodiff.Value, len(batch))
	for i, s := range batch {
		predictions := t.Model.Forward(t.Graph.Leaves(s.Inputs, false))
		if len(predictions) != len(s.Targets) {
			panic(fmt.Sprintf("train: model produced %d outputs for %d targets", len(predictions), len(s.Targets)))
		}
		losses[i] = t.Loss(t.Graph, predictions, t.Graph.Leaves(s.Targets, false))
	}
	total := t.Graph.Sum(losses)
	total.Backward()

	params := t.Optimizer.Parameters()
	grads := make([]float64, len(params))
	for i, p := range params {
		grads[i] = p.Grad()
	}
	norm := floats.Norm(grads, 2)

	// a short final batch still takes a mean-gradient step
	t.Optimizer.SetBatchSize(len(batch))
	t.Optimizer.Step()
	t.Optimizer.ZeroGrad()
	return total.Data(), norm
}

// Predict runs the model forward on inputs without keeping any nodes
func (t *Trainer) Predict(inputs []float64) []float64 {
	mark := t.Graph.Mark()
	defer t.Graph.Truncate(mark)

	outputs := t.Model.Forward(t.Graph.Leaves(inputs, false))
	values := make([]float64, len(outputs))
	for i, o := range outputs {
		values[i] = o.Data()
	}
	return values
}

// Epoch returns the number of completed epochs
func (t *Trainer) Epoch() int {
	return t.epoch
}

// RunID returns the history run this trainer records into, or 0
func (t *Trainer) RunID() int64 {
	return t.runID
}
