// Command scalargrad trains small networks on the scalar autodiff engine.
//
// Usage:
//
//	scalargrad -task graph
//	scalargrad -task fit -epochs 100 -lr 0.1
//	scalargrad -task sine -hidden 16 -activation tanh -scheduler cosine -history runs.db
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"

	"github.com/tsawler/scalargrad/autodiff"
	"github.com/tsawler/scalargrad/dataset"
	"github.com/tsawler/scalargrad/nn"
	"github.com/tsawler/scalargrad/optimizer"
	"github.com/tsawler/scalargrad/train"
	"gonum.org/v1/gonum/mat"
)

func main() {
	defaults := train.DefaultConfig()

	task := flag.String("task", "fit", "demo to run: graph, fit or sine")
	epochs := flag.Int("epochs", defaults.Epochs, "number of training epochs")
	lr := flag.Float64("lr", defaults.LearningRate, "learning rate")
	batch := flag.Int("batch", defaults.BatchSize, "samples per optimizer step")
	seed := flag.Uint64("seed", defaults.Seed, "seed for weight initialization and data")
	hidden := flag.Int("hidden", defaults.Hidden, "hidden layer size")
	activation := flag.String("activation", defaults.Activation.String(), "hidden activation: relu, leaky_relu, tanh, sigmoid or identity")
	scheduler := flag.String("scheduler", defaults.Scheduler.String(), "learning rate schedule: none, step, exp or cosine")
	samples := flag.Int("samples", 64, "number of generated samples for the sine task")
	history := flag.String("history", "", "SQLite file to record the run in")
	checkpoint := flag.String("checkpoint", "", "directory to save the trained parameters in")
	resume := flag.Bool("resume", false, "resume from the -checkpoint directory")
	logEvery := flag.Int("log-every", defaults.LogEvery, "log every N epochs (0 disables)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger := log.New(os.Stderr, "[scalargrad] ", log.LstdFlags)

	cfg := defaults
	cfg.Epochs = *epochs
	cfg.LearningRate = *lr
	cfg.BatchSize = *batch
	cfg.Seed = *seed
	cfg.Hidden = *hidden
	cfg.LogEvery = *logEvery
	cfg.HistoryPath = *history
	cfg.CheckpointDir = *checkpoint
	cfg.Resume = *resume

	var err error
	if cfg.Activation, err = nn.ParseActivation(*activation); err != nil {
		log.Fatalf("invalid -activation: %v", err)
	}
	if cfg.Scheduler, err = train.ParseScheduler(*scheduler); err != nil {
		log.Fatalf("invalid -scheduler: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	switch *task {
	case "graph":
		// the quartic loss diverges at the network default rate
		if !flagSet("lr") {
			cfg.LearningRate = graphLearningRate
		}
		runGraph(cfg, logger)
	case "fit":
		runFit(cfg, logger)
	case "sine":
		runSine(cfg, *samples, logger)
	default:
		log.Fatalf("unknown task %q", *task)
	}
}

const graphLearningRate = 0.001

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// runGraph minimises (leaky_relu(a^2 + b^2) - 0)^2 over two scalar leaves
func runGraph(cfg *train.Config, logger *log.Logger) {
	g := autodiff.NewGraph()
	a := g.Leaf(3, true)
	b := g.Leaf(2, true)
	mark := g.Mark()

	opt := optimizer.New([]autodiff.Value{a, b}, cfg.LearningRate)
	for i := 0; i < cfg.Epochs; i++ {
		out := g.LeakyReLU(g.Add(g.Pow(a, 2), g.Pow(b, 2)))
		loss := g.Pow(g.Sub(out, g.Const(0)), 2)
		loss.Backward()
		if cfg.LogEvery > 0 && (i+1)%cfg.LogEvery == 0 {
			logger.Printf("step %d: loss=%.6g a=%.6g (grad %.6g) b=%.6g (grad %.6g)",
				i+1, loss.Data(), a.Data(), a.Grad(), b.Data(), b.Grad())
		}
		opt.Step()
		opt.ZeroGrad()
		g.Truncate(mark)
	}
	fmt.Printf("a = %g\nb = %g\n", a.Data(), b.Data())
}

// runFit trains the 4 -> hidden -> 3 network on the fixed sample
func runFit(cfg *train.Config, logger *log.Logger) {
	g := autodiff.NewGraph()
	net := nn.NewNetwork(g, 4, cfg.Hidden, 3, cfg.Activation, nn.DefaultInitializer(cfg.Seed))
	data := dataset.Fixed()

	trainer := newTrainer(cfg, g, net, logger)
	if trainer.History != nil {
		defer trainer.History.Close()
	}
	fit(trainer, data, logger)

	fmt.Printf("y = %v\n", trainer.Predict(data[0].Inputs))
	fmt.Printf("output weights =\n%v\n", mat.Formatted(net.Output.Weights(), mat.Prefix(""), mat.Squeeze()))
}

// runSine fits sin(x) on [0, 2π) with a 1 -> hidden -> 1 network
func runSine(cfg *train.Config, n int, logger *log.Logger) {
	g := autodiff.NewGraph()
	net := nn.NewNetwork(g, 1, cfg.Hidden, 1, cfg.Activation, nn.NewInitializer(cfg.Seed, -0.5, 0.5))
	data := dataset.Sine(n, rand.NewPCG(cfg.Seed, cfg.Seed+1))

	trainer := newTrainer(cfg, g, net, logger)
	if trainer.History != nil {
		defer trainer.History.Close()
	}
	fit(trainer, data, logger)

	best, epoch := trainer.Metrics.BestLoss()
	logger.Printf("best loss %.6f at epoch %d", best, epoch+1)
	for _, x := range []float64{0, 1.5707963, 3.1415926, 4.712389} {
		fmt.Printf("sin(%.4f) ≈ %.4f\n", x, trainer.Predict([]float64{x})[0])
	}
}

func newTrainer(cfg *train.Config, g *autodiff.Graph, model train.Model, logger *log.Logger) *train.Trainer {
	trainer, err := train.NewTrainer(cfg, g, model)
	if err != nil {
		log.Fatalf("failed to create trainer: %v", err)
	}
	trainer.Logger = logger

	if cfg.HistoryPath != "" {
		h, err := train.OpenHistory(cfg.HistoryPath)
		if err != nil {
			log.Fatalf("failed to open history: %v", err)
		}
		trainer.History = h
	}
	if cfg.Resume {
		c, err := train.LoadCheckpoint(cfg.CheckpointDir, trainer)
		if err != nil {
			log.Fatalf("failed to resume: %v", err)
		}
		logger.Printf("resumed from %s at epoch %d", cfg.CheckpointDir, c.Epoch)
	}
	return trainer
}

func fit(trainer *train.Trainer, data []dataset.Sample, logger *log.Logger) {
	if err := trainer.Train(data); err != nil {
		log.Fatalf("training failed: %v", err)
	}
	if dir := trainer.Config.CheckpointDir; dir != "" {
		if _, err := train.SaveCheckpoint(dir, trainer); err != nil {
			log.Fatalf("failed to save checkpoint: %v", err)
		}
		logger.Printf("saved checkpoint to %s", dir)
	}
}
