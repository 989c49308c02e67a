package scores

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestInterpret_Dominant(t *testing.T) {
	p, err := Interpret([]float32{10, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if p.Index != 0 || p.Label != "Agate" {
		t.Errorf("got %d/%s, want 0/Agate", p.Index, p.Label)
	}
	// exp(8.1) / (exp(8.1) + 9*exp(-0.9))
	if math.Abs(p.Confidence-0.998890) > 1e-5 {
		t.Errorf("confidence: got %f", p.Confidence)
	}
	if got := p.Percent(); got != "99.89%" {
		t.Errorf("percent: got %s, want 99.89%%", got)
	}
}

func TestInterpret_TieBreak(t *testing.T) {
	tests := []struct {
		name   string
		scores []float32
		want   int
	}{
		{"first two tied", []float32{5, 5, 1, 1, 1, 1, 1, 1, 1, 1}, 0},
		{"middle tie", []float32{0, 0, 0, 7, 0, 0, 7, 0, 0, 0}, 3},
		{"all equal", []float32{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}, 0},
		{"last wins", []float32{-1, -1, -1, -1, -1, -1, -1, -1, -1, 0}, 9},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Interpret(tc.scores)
			if err != nil {
				t.Fatalf("Interpret: %v", err)
			}
			if p.Index != tc.want {
				t.Errorf("index: got %d, want %d", p.Index, tc.want)
			}
			if p.Label != Classes[tc.want] {
				t.Errorf("label: got %s, want %s", p.Label, Classes[tc.want])
			}
		})
	}
}

func TestInterpret_ShapeMismatch(t *testing.T) {
	for _, n := range []int{0, 9, 11, 1000} {
		_, err := Interpret(make([]float32, n))
		if !errors.Is(err, ErrScoreShapeMismatch) {
			t.Errorf("len %d: expected ErrScoreShapeMismatch, got %v", n, err)
		}
	}
}

func TestInterpret_NonFinite(t *testing.T) {
	tests := []struct {
		name string
		v    float32
	}{
		{"nan", float32(math.NaN())},
		{"+inf", float32(math.Inf(1))},
		{"-inf", float32(math.Inf(-1))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := make([]float32, NumClasses)
			raw[4] = tc.v
			_, err := Interpret(raw)
			if !errors.Is(err, ErrNonFiniteScore) {
				t.Errorf("expected ErrNonFiniteScore, got %v", err)
			}
		})
	}
}

func TestInterpret_RandomVectors(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 500; n++ {
		raw := make([]float32, NumClasses)
		scale := float32(rng.Intn(200) + 1)
		for i := range raw {
			raw[i] = (rng.Float32()*2 - 1) * scale
		}

		p, err := Interpret(raw)
		if err != nil {
			t.Fatalf("Interpret(%v): %v", raw, err)
		}
		if p.Index < 0 || p.Index >= NumClasses {
			t.Fatalf("index out of range: %d", p.Index)
		}
		if p.Confidence < 0 || p.Confidence > 1 || math.IsNaN(p.Confidence) {
			t.Fatalf("confidence out of range: %f", p.Confidence)
		}

		sum := 0.0
		for _, v := range p.Probabilities {
			sum += v
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Fatalf("softmax sums to %f for %v", sum, raw)
		}
	}
}

func TestSoftmax_WideRange(t *testing.T) {
	// Mean shift overflows here; the result must still be a distribution.
	x := []float64{1000, -1000, -1000, -1000, -1000, -1000, -1000, -1000, -1000, -1000}
	p := Softmax(x)

	if math.Abs(p[0]-1) > 1e-9 {
		t.Errorf("p[0]: got %g, want 1", p[0])
	}
	for i := 1; i < len(p); i++ {
		if p[i] < 0 || p[i] > 1e-9 || math.IsNaN(p[i]) {
			t.Errorf("p[%d]: got %g, want ~0", i, p[i])
		}
	}
}

func TestSoftmax_MatchesMeanShift(t *testing.T) {
	x := []float64{0.5, -1.25, 3, 2.75, 0, 0, -4, 1, 1, 0.1}
	p := Softmax(x)

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	var sum float64
	want := make([]float64, len(x))
	for i, v := range x {
		want[i] = math.Exp(v - mean)
		sum += want[i]
	}
	for i := range want {
		want[i] /= sum
		if math.Abs(p[i]-want[i]) > 1e-12 {
			t.Errorf("p[%d]: got %g, want %g", i, p[i], want[i])
		}
	}
}

func TestPrediction_Ranked(t *testing.T) {
	p, err := Interpret([]float32{1, 3, 3, 0, 0, 0, 0, 0, 0, 2})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	top := p.Ranked(4)
	want := []string{"Amethyst", "Beryl", "Topaz", "Agate"}
	if len(top) != len(want) {
		t.Fatalf("len: got %d, want %d", len(top), len(want))
	}
	for i, w := range want {
		if top[i].Label != w {
			t.Errorf("rank %d: got %s, want %s", i, top[i].Label, w)
		}
	}
	if top[0].Probability != p.Confidence {
		t.Errorf("top probability %f != confidence %f", top[0].Probability, p.Confidence)
	}

	if got := len(p.Ranked(50)); got != NumClasses {
		t.Errorf("Ranked(50): got %d entries", got)
	}
	if got := len(p.Ranked(-1)); got != 0 {
		t.Errorf("Ranked(-1): got %d entries", got)
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00%"},
		{1, "100.00%"},
		{0.5, "50.00%"},
		{0.123456, "12.35%"},
		{0.99999, "100.00%"},
	}
	for _, tc := range tests {
		if got := FormatPercent(tc.in); got != tc.want {
			t.Errorf("FormatPercent(%v): got %s, want %s", tc.in, got, tc.want)
		}
	}
}
