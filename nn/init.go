package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Default initialization range, matching small positive starting weights.
const (
	DefaultInitMin = 0.0
	DefaultInitMax = 0.01
)

// Initializer draws starting parameter values from a bounded uniform
// distribution driven by an explicitly seeded generator.
type Initializer struct {
	dist distuv.Uniform
}

// NewInitializer creates an initializer over [lo, hi) seeded with seed.
func NewInitializer(seed uint64, lo, hi float64) *Initializer {
	if !(lo < hi) {
		panic(fmt.Sprintf("nn: invalid initialization range [%g, %g)", lo, hi))
	}
	return &Initializer{
		dist: distuv.Uniform{
			Min: lo,
			Max: hi,
			Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

// DefaultInitializer creates an initializer over [DefaultInitMin, DefaultInitMax).
func DefaultInitializer(seed uint64) *Initializer {
	return NewInitializer(seed, DefaultInitMin, DefaultInitMax)
}

// Next returns the next starting value.
func (in *Initializer) Next() float64 {
	return in.dist.Rand()
}

// Range returns the bounds values are drawn from.
func (in *Initializer) Range() (lo, hi float64) {
	return in.dist.Min, in.dist.Max
}
