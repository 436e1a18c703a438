package nn

import (
	"fmt"

	"github.com/tsawler/scalargrad/autodiff"
)

// MSE returns the summed squared error sum((p_i - t_i)^2). It is not divided
// by the number of outputs.
func MSE(g *autodiff.Graph, predictions, targets []autodiff.Value) autodiff.Value {
	if len(predictions) != len(targets) {
		panic(fmt.Sprintf("nn: %d predictions for %d targets", len(predictions), len(targets)))
	}
	if len(predictions) == 0 {
		panic("nn: loss over empty outputs")
	}

	terms := make([]autodiff.Value, len(predictions))
	for i := range predictions {
		terms[i] = g.Pow(g.Sub(predictions[i], targets[i]), 2)
	}
	return g.Sum(terms)
}

// CrossEntropy returns -ln(softmax(logits)[class]). It inherits Softmax's
// lack of max subtraction.
func CrossEntropy(g *autodiff.Graph, logits []autodiff.Value, class int) autodiff.Value {
	if class < 0 || class >= len(logits) {
		panic(fmt.Sprintf("nn: class %d out of range for %d logits", class, len(logits)))
	}
	probs := g.Softmax(logits)
	return g.Neg(g.Log(probs[class]))
}
