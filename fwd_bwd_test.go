package hmm

import (
	"math"
	"testing"
)

func TestLogForward(t *testing.T) {
	h := testingHMM()
	seq := Symbols(0, 2, 1, 0)

	alpha, ll := h.LogForward(seq)
	if len(alpha) != len(seq) {
		t.Fatalf("expected %d columns but got %d", len(seq), len(alpha))
	}
	for i := range seq {
		expected := make([]float64, h.NumStates())
		bruteForcePaths(h, seq[:i+1], func(path []int, prob float64) {
			expected[path[i]] += prob
		})
		for state, x := range expected {
			a := math.Exp(alpha[i][state])
			if math.Abs(a-x) > testPrecision {
				t.Errorf("time %d state %d: expected %v but got %v", i, state, x, a)
			}
		}
	}

	var total float64
	bruteForcePaths(h, seq, func(path []int, prob float64) {
		total += prob
	})
	if math.Abs(math.Exp(ll)-total) > testPrecision {
		t.Errorf("expected likelihood %v but got %v", total, math.Exp(ll))
	}
}

func TestLogBackward(t *testing.T) {
	h := testingHMM()
	seq := Symbols(0, 2, 1, 0)

	beta := h.LogBackward(seq)
	if len(beta) != len(seq) {
		t.Fatalf("expected %d columns but got %d", len(seq), len(beta))
	}
	for i := range seq {
		for state := 0; state < h.NumStates(); state++ {
			// Condition on the state at time i by starting
			// a copy of the model one step after it.
			sub := &HMM{
				Transitions: h.Transitions,
				Init:        h.Transitions[state],
				Emissions:   h.Emissions,
			}
			var expected float64
			bruteForcePaths(sub, seq[i+1:], func(path []int, prob float64) {
				expected += prob
			})
			a := math.Exp(beta[i][state])
			if math.Abs(a-expected) > testPrecision {
				t.Errorf("time %d state %d: expected %v but got %v", i, state, expected, a)
			}
		}
	}
}

func TestEvaluate(t *testing.T) {
	h := classicHMM()
	seq := Symbols(0, 1, 2)
	_, ll := h.LogForward(seq)
	if actual := h.Evaluate(seq); actual != math.Exp(ll) {
		t.Errorf("expected %v but got %v", math.Exp(ll), actual)
	}
	if actual := h.Evaluate(seq); math.Abs(actual-0.033612) > testPrecision {
		t.Errorf("expected 0.033612 but got %v", actual)
	}
}

func TestEmptySequence(t *testing.T) {
	h := classicHMM()
	alpha, ll := h.LogForward(nil)
	if len(alpha) != 0 || ll != 0 {
		t.Errorf("unexpected result: %v %v", alpha, ll)
	}
	if p := h.Evaluate(nil); p != 1 {
		t.Errorf("expected probability 1 but got %v", p)
	}
	if beta := h.LogBackward(nil); len(beta) != 0 {
		t.Errorf("expected no columns but got %d", len(beta))
	}
}

func TestImpossibleSequence(t *testing.T) {
	h := testingHMM()
	for _, e := range h.Emissions {
		e.(*Categorical).LogProbs = append(e.(*Categorical).LogProbs, math.Inf(-1))
	}
	seq := Symbols(0, 3, 1)
	if ll := h.LogLikelihood(seq); !math.IsInf(ll, -1) {
		t.Fatalf("expected -inf but got %f", ll)
	}
	fb := NewForwardBackward(h, seq)
	for i := 0; i < fb.Len(); i++ {
		for _, x := range fb.Dist(i) {
			if !math.IsInf(x, -1) {
				t.Errorf("time %d: expected -inf but got %f", i, x)
			}
		}
	}
	for _, row := range fb.TransDist(1) {
		for _, x := range row {
			if !math.IsInf(x, -1) {
				t.Errorf("expected -inf but got %f", x)
			}
		}
	}
}

func TestForwardBackwardDists(t *testing.T) {
	h := testingHMM()
	seq := Symbols(0, 2, 0, 0, 1)
	fb := NewForwardBackward(h, seq)

	expected := make([][]float64, len(seq))
	for i := range expected {
		expected[i] = make([]float64, h.NumStates())
	}
	var total float64
	bruteForcePaths(h, seq, func(path []int, prob float64) {
		total += prob
		for i, state := range path {
			expected[i][state] += prob
		}
	})

	for i := 0; i < fb.Len(); i++ {
		dist := fb.Dist(i)
		for state, x := range expected[i] {
			a := math.Exp(dist[state])
			if math.Abs(a-x/total) > testPrecision {
				t.Errorf("time %d state %d: expected %v but got %v", i, state, x/total, a)
			}
		}
		if i == 0 {
			continue
		}
		trans := fb.TransDist(i)
		for j := range dist {
			var marginal []float64
			for from := range trans {
				marginal = append(marginal, trans[from][j])
			}
			if math.Abs(logSumExp(marginal)-dist[j]) > 1e-6 {
				t.Errorf("time %d state %d: joint marginal %f does not match %f",
					i, j, logSumExp(marginal), dist[j])
			}
		}
	}
}

func TestDimensionMismatchPanics(t *testing.T) {
	h := classicHMM()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	h.LogForward([]Obs{{0, 1}})
}

func BenchmarkLogForward(b *testing.B) {
	h, seq := benchmarkingHMM()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.LogForward(seq)
	}
}

func BenchmarkForwardBackward(b *testing.B) {
	h, seq := benchmarkingHMM()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewForwardBackward(h, seq)
	}
}
