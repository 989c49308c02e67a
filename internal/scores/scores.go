// Package scores interprets raw model output as a mineral class and a
// confidence.
package scores

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Classes is the label table, in the model's training order.
var Classes = [...]string{
	"Agate", "Amethyst", "Beryl", "Copper", "Diopside",
	"Gold", "Quartz", "Silver", "Spinel", "Topaz",
}

// NumClasses is the required score vector length.
const NumClasses = len(Classes)

var (
	// ErrScoreShapeMismatch means the model output does not line up with the
	// label table. It is fatal: the model and labels disagree.
	ErrScoreShapeMismatch = errors.New("scores: score vector does not match class table")

	// ErrNonFiniteScore is returned when the model emitted NaN or Inf.
	ErrNonFiniteScore = errors.New("scores: non-finite score")
)

// Prediction is an interpreted score vector.
type Prediction struct {
	Index      int
	Label      string
	Confidence float64 // softmax probability of Index, in [0,1]

	// Probabilities is the full softmax, index-aligned with Classes.
	Probabilities []float64
}

// Percent formats the confidence as a percentage with two decimals.
func (p Prediction) Percent() string {
	return FormatPercent(p.Confidence)
}

// LabelProbability pairs a class label with its probability.
type LabelProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Ranked returns the k most probable classes, most probable first.
// Equal probabilities keep class-table order.
func (p Prediction) Ranked(k int) []LabelProbability {
	idx := make([]int, len(p.Probabilities))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.Probabilities[idx[a]] > p.Probabilities[idx[b]]
	})
	if k > len(idx) {
		k = len(idx)
	}
	if k < 0 {
		k = 0
	}

	out := make([]LabelProbability, k)
	for i := 0; i < k; i++ {
		out[i] = LabelProbability{Label: Classes[idx[i]], Probability: p.Probabilities[idx[i]]}
	}
	return out
}

// Interpret validates raw and returns the arg-max class with its softmax
// confidence. Ties go to the lowest index.
func Interpret(raw []float32) (Prediction, error) {
	if len(raw) != NumClasses {
		return Prediction{}, fmt.Errorf("%w: got %d scores, want %d", ErrScoreShapeMismatch, len(raw), NumClasses)
	}

	x := make([]float64, len(raw))
	for i, v := range raw {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Prediction{}, fmt.Errorf("%w at index %d", ErrNonFiniteScore, i)
		}
		x[i] = f
	}

	idx := floats.MaxIdx(x)
	probs := Softmax(x)

	return Prediction{
		Index:         idx,
		Label:         Classes[idx],
		Confidence:    probs[idx],
		Probabilities: probs,
	}, nil
}

// Softmax subtracts the arithmetic mean of x before exponentiating.
// If that overflows it falls back to subtracting the max, which yields the
// same distribution.
func Softmax(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}

	if shifted(out, x, stat.Mean(x, nil)) {
		return out
	}
	shifted(out, x, floats.Max(x))
	return out
}

// shifted writes exp(x-shift) normalized into out and reports whether the
// sum stayed finite.
func shifted(out, x []float64, shift float64) bool {
	for i, v := range x {
		out[i] = math.Exp(v - shift)
	}
	sum := floats.Sum(out)
	if math.IsInf(sum, 0) {
		return false
	}
	floats.Scale(1/sum, out)
	return true
}

// FormatPercent renders a [0,1] value as "NN.NN%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
