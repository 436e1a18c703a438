package autodiff

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// BuildFunc composes a scalar expression over the given input leaves.
type BuildFunc func(g *Graph, inputs []Value) Value

// GradCheckResult holds the analytic and numeric gradients of one check.
type GradCheckResult struct {
	Analytic   []float64
	Numeric    []float64
	MaxAbsDiff float64
}

// GradCheckError reports the first input whose analytic gradient disagrees
// with the finite-difference estimate.
type GradCheckError struct {
	Input    int
	Analytic float64
	Numeric  float64
}

func (e *GradCheckError) Error() string {
	return fmt.Sprintf("gradient mismatch at input %d: analytic %g, numeric %g", e.Input, e.Analytic, e.Numeric)
}

// NumericGradient estimates the gradient of f at x with central differences.
func NumericGradient(f func([]float64) float64, x []float64) []float64 {
	at := make([]float64, len(x))
	copy(at, x)
	return fd.Gradient(nil, f, at, &fd.Settings{
		Formula: fd.Central,
		Step:    1e-6,
	})
}

// Evaluate builds the expression on a fresh graph and returns its value.
func Evaluate(build BuildFunc, x []float64) float64 {
	g := NewGraph()
	return build(g, g.Leaves(x, true)).Data()
}

// AnalyticGradient builds the expression on a fresh graph, runs the backward
// pass and returns the gradient of every input.
func AnalyticGradient(build BuildFunc, x []float64) []float64 {
	g := NewGraph()
	inputs := g.Leaves(x, true)
	build(g, inputs).Backward()

	grads := make([]float64, len(inputs))
	for i, in := range inputs {
		grads[i] = in.Grad()
	}
	return grads
}

// CheckGradient compares the analytic gradient of build at x against a
// central finite-difference estimate. Each component must agree within tol,
// absolute or relative.
func CheckGradient(build BuildFunc, x []float64, tol float64) (GradCheckResult, error) {
	if len(x) == 0 {
		return GradCheckResult{}, errors.New("gradient check needs at least one input")
	}
	if tol <= 0 {
		return GradCheckResult{}, errors.Errorf("gradient check tolerance must be positive, got %g", tol)
	}

	res := GradCheckResult{
		Analytic: AnalyticGradient(build, x),
		Numeric: NumericGradient(func(at []float64) float64 {
			return Evaluate(build, at)
		}, x),
	}

	diff := make([]float64, len(x))
	floats.SubTo(diff, res.Analytic, res.Numeric)
	for i, d := range diff {
		diff[i] = math.Abs(d)
	}
	res.MaxAbsDiff = floats.Max(diff)

	for i := range x {
		if !scalar.EqualWithinAbsOrRel(res.Analytic[i], res.Numeric[i], tol, tol) {
			return res, errors.WithStack(&GradCheckError{
				Input:    i,
				Analytic: res.Analytic[i],
				Numeric:  res.Numeric[i],
			})
		}
	}
	return res, nil
}
