// Package dataset provides small in-memory regression samples for training
// networks built on the autodiff engine.
package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sample pairs one input vector with its target vector
type Sample struct {
	Inputs  []float64
	Targets []float64
}

// Fixed returns the single four-input, three-output regression sample used
// by the network demo.
func Fixed() []Sample {
	return []Sample{{
		Inputs:  []float64{1, 2, 3, 4},
		Targets: []float64{-10, 20.54553, 30},
	}}
}

// Sine draws n points x uniformly from [0, 2π) and pairs each with sin(x).
func Sine(n int, src rand.Source) []Sample {
	if n < 0 {
		panic(fmt.Sprintf("dataset: negative sample count %d", n))
	}
	dist := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src}

	samples := make([]Sample, n)
	for i := range samples {
		x := dist.Rand()
		samples[i] = Sample{
			Inputs:  []float64{x},
			Targets: []float64{math.Sin(x)},
		}
	}
	return samples
}

// Batches splits samples into consecutive batches of at most size samples.
// The returned batches share the underlying array with samples.
func Batches(samples []Sample, size int) [][]Sample {
	if size <= 0 {
		panic(fmt.Sprintf("dataset: batch size must be positive, got %d", size))
	}
	batches := make([][]Sample, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))
		batches = append(batches, samples[start:end:end])
	}
	return batches
}
