package hmm

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestClassifierSymmetry(t *testing.T) {
	c, err := NewClassifier(2, Ergodic{States: 2}, NewCategorical(5))
	if err != nil {
		t.Fatal(err)
	}
	seqs := [][]Obs{Symbols(0, 1, 2, 3, 4), Symbols(4, 3, 2, 1, 0)}
	learning := &ClassifierLearning{Classifier: c}
	ll, err := learning.Run(seqs, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ll-2*-5.545177444479562) > 1e-6 {
		t.Errorf("unexpected total log-likelihood: %f", ll)
	}

	class0, ll0 := c.Compute(seqs[0])
	class1, ll1 := c.Compute(seqs[1])
	if class0 != 0 || class1 != 1 {
		t.Errorf("expected classes 0 and 1 but got %d and %d", class0, class1)
	}
	if math.Abs(ll0-ll1) > 1e-9 {
		t.Errorf("expected equal log-likelihoods but got %f and %f", ll0, ll1)
	}
	if math.Abs(ll0+5.545177444479562) > 1e-6 {
		t.Errorf("unexpected log-likelihood: %f", ll0)
	}
	for i, m := range c.Models {
		checkNormalized(t, m)
		if other := m.LogLikelihood(seqs[1-i]); other > ll0-100 {
			t.Errorf("model %d explains the other sequence too well: %f", i, other)
		}
	}
}

func TestClassifierRejection(t *testing.T) {
	c, err := NewClassifier(2, Ergodic{States: 3}, NewCategorical(3))
	if err != nil {
		t.Fatal(err)
	}
	c.Sensitivity = 0.5
	seqs := [][]Obs{
		Symbols(0, 0, 1, 2),
		Symbols(0, 1, 1, 2),
		Symbols(2, 2, 1, 0),
		Symbols(2, 2, 2, 1, 0),
	}
	labels := []int{0, 0, 1, 1}
	learning := &ClassifierLearning{Classifier: c, Rejection: true}
	ll, err := learning.Run(seqs, labels)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsInf(ll, 0) || math.IsNaN(ll) {
		t.Errorf("unexpected log-likelihood: %f", ll)
	}
	if c.Threshold == nil {
		t.Fatal("threshold model was not created")
	}
	if c.Threshold.NumStates() != 6 {
		t.Errorf("expected 6 threshold states but got %d", c.Threshold.NumStates())
	}

	for i, seq := range seqs {
		class, _ := c.Compute(seq)
		if class != labels[i] {
			t.Errorf("sequence %d: expected class %d but got %d", i, labels[i], class)
		}
	}

	outlier := Symbols(1, 1, 0, 0, 2)
	class, score := c.Compute(outlier)
	if class != Unknown {
		t.Errorf("expected rejection but got class %d", class)
	}
	if thr := c.Threshold.LogLikelihood(outlier); score != thr {
		t.Errorf("expected threshold log-likelihood %f but got %f", thr, score)
	}
	if math.Abs(score+33.24766409493263) > 1e-4 {
		t.Errorf("unexpected rejection score: %f", score)
	}

	c.Sensitivity = 0
	if class, _ := c.Compute(outlier); class != 0 {
		t.Errorf("expected class 0 without sensitivity but got %d", class)
	}
}

func TestClassifierDegenerate(t *testing.T) {
	proto := mustCategorical([]float64{0.5, 0.5, 0})
	c, err := NewClassifier(2, Custom{
		Transitions: [][]float64{{0.5, 0.5}, {0, 1}},
		Init:        []float64{1, 0},
	}, proto)
	if err != nil {
		t.Fatal(err)
	}
	seqs := [][]Obs{
		Symbols(0, 1, 0),
		Symbols(1, 1, 0),
		Symbols(2, 2),
		Symbols(1, 0, 1),
	}
	learning := &ClassifierLearning{Classifier: c}
	ll, err := learning.Run(seqs, []int{0, 0, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(ll, -1) {
		t.Errorf("expected -inf but got %f", ll)
	}

	if class, _ := c.Compute(Symbols(0, 1, 0)); class != 0 {
		t.Errorf("expected class 0 but got %d", class)
	}
	if class, _ := c.Compute(Symbols(1, 0, 1)); class != 1 {
		t.Errorf("expected class 1 but got %d", class)
	}
	class, ll := c.Compute(Symbols(2, 2))
	if class != 0 || !math.IsInf(ll, -1) {
		t.Errorf("expected class 0 with -inf but got %d with %f", class, ll)
	}
	for _, p := range c.Posteriors(Symbols(2, 2)) {
		if p != 0 {
			t.Errorf("expected zero posteriors but got %v", p)
		}
	}

	c.Threshold, err = ThresholdModel(c.Models)
	if err != nil {
		t.Fatal(err)
	}
	if class, _ := c.Compute(Symbols(2, 2)); class != Unknown {
		t.Errorf("expected rejection of impossible sequence but got %d", class)
	}
}

func TestThresholdModel(t *testing.T) {
	m1 := classicHMM()
	m2 := testingHMM()
	thr, err := ThresholdModel([]*HMM{m1, m2})
	if err != nil {
		t.Fatal(err)
	}
	if thr.NumStates() != 5 {
		t.Fatalf("expected 5 states but got %d", thr.NumStates())
	}
	for i := 0; i < 2; i++ {
		for j := 2; j < 5; j++ {
			if !math.IsInf(thr.Transitions[i][j], -1) || !math.IsInf(thr.Transitions[j][i], -1) {
				t.Errorf("expected no transitions between %d and %d", i, j)
			}
		}
	}
	checkNormalized(t, thr)

	seq := Symbols(0, 2, 1, 0)
	expected := math.Log((m1.Evaluate(seq) + m2.Evaluate(seq)) / 2)
	if actual := thr.LogLikelihood(seq); math.Abs(actual-expected) > testPrecision {
		t.Errorf("expected %f but got %f", expected, actual)
	}

	m1.Emissions[0].(*Categorical).LogProbs[0] = 0
	if thr.Emissions[0].(*Categorical).LogProbs[0] == 0 {
		t.Error("threshold model shares emissions with its source")
	}
}

func TestClassifierConcurrent(t *testing.T) {
	c := &Classifier{Models: []*HMM{classicHMM(), testingHMM()}}
	seqs := [][]Obs{Symbols(0, 1, 2), Symbols(0, 2, 0, 0), Symbols(1, 1, 1, 2, 0)}
	expectedClasses := make([]int, len(seqs))
	expectedLLs := make([]float64, len(seqs))
	for i, seq := range seqs {
		expectedClasses[i], expectedLLs[i] = c.Compute(seq)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			classes, lls := c.ComputeAll(seqs, 0)
			for j := range seqs {
				if classes[j] != expectedClasses[j] || lls[j] != expectedLLs[j] {
					t.Errorf("sequence %d: expected (%d, %f) but got (%d, %f)", j,
						expectedClasses[j], expectedLLs[j], classes[j], lls[j])
				}
			}
		}()
	}
	wg.Wait()

	classes, lls := c.ComputeAll(seqs, -1)
	for j := range seqs {
		if classes[j] != expectedClasses[j] || lls[j] != expectedLLs[j] {
			t.Errorf("negative parallelism, sequence %d: expected (%d, %f) but got (%d, %f)",
				j, expectedClasses[j], expectedLLs[j], classes[j], lls[j])
		}
	}
}

func TestClassifierPosteriors(t *testing.T) {
	c := &Classifier{Models: []*HMM{classicHMM(), testingHMM()}}
	seq := Symbols(0, 1, 2)
	post := c.Posteriors(seq)
	if math.Abs(post[0]+post[1]-1) > testPrecision {
		t.Errorf("posteriors do not sum to 1: %v", post)
	}
	p0 := c.Models[0].Evaluate(seq)
	p1 := c.Models[1].Evaluate(seq)
	if math.Abs(post[0]-p0/(p0+p1)) > testPrecision {
		t.Errorf("expected %f but got %f", p0/(p0+p1), post[0])
	}
}

func TestClassifierLearningInvalid(t *testing.T) {
	c, err := NewClassifier(2, Ergodic{States: 2}, NewCategorical(3))
	if err != nil {
		t.Fatal(err)
	}
	learning := &ClassifierLearning{Classifier: c}
	for _, labels := range [][]int{{0}, {0, 2}, {0, 0}, {-1, 1}} {
		_, err := learning.Run([][]Obs{Symbols(0), Symbols(1)}, labels)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("labels %v: expected ErrInvalidConfig but got %v", labels, err)
		}
	}
	learning.Parallelism = -1
	_, err = learning.Run([][]Obs{Symbols(0), Symbols(1)}, []int{0, 1})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative parallelism: expected ErrInvalidConfig but got %v", err)
	}
}

type failingLearner struct{}

func (failingLearner) Run(seqs [][]Obs) (float64, error) {
	return 0, ErrDegenerateFit
}

func TestClassifierLearningError(t *testing.T) {
	c, err := NewClassifier(3, Ergodic{States: 2}, NewCategorical(3))
	if err != nil {
		t.Fatal(err)
	}
	learning := &ClassifierLearning{
		Classifier: c,
		Learner: func(class int, model *HMM) Learner {
			if class == 1 {
				return failingLearner{}
			}
			return &BaumWelch{Model: model, Iterations: 5}
		},
		Parallelism: 2,
	}
	_, err = learning.Run([][]Obs{Symbols(0, 1), Symbols(1, 2), Symbols(2, 0)},
		[]int{0, 1, 2})
	if !errors.Is(err, ErrDegenerateFit) {
		t.Errorf("expected ErrDegenerateFit but got %v", err)
	}
}
