package hmm

import (
	"fmt"
	"math"
	"math/rand"
)

// A Topology creates the initial transition matrix and
// initial state distribution of a model.
//
// Both results are in the log domain.
type Topology interface {
	Create() (transitions [][]float64, init []float64, err error)
}

// Ergodic is a fully-connected Topology.
//
// The process always starts in state 0.
type Ergodic struct {
	States int

	// If Random is non-nil, every transition row is a
	// random distribution drawn from it.
	// Otherwise, rows are uniform.
	Random *rand.Rand
}

// Create creates the matrices.
func (e Ergodic) Create() ([][]float64, []float64, error) {
	if e.States < 1 {
		return nil, nil, fmt.Errorf("%w: %d states", ErrInvalidConfig, e.States)
	}
	trans := make([][]float64, e.States)
	for i := range trans {
		if e.Random != nil {
			trans[i] = randomDist(e.Random, e.States)
		} else {
			trans[i] = filledVector(e.States, -math.Log(float64(e.States)))
		}
	}
	return trans, startInFirst(e.States), nil
}

// Forward is a left-to-right Topology.
//
// State i may only move to states i through
// i+Deepness-1.
// The process always starts in state 0.
type Forward struct {
	States int

	// Deepness is the number of states reachable from a
	// state, including itself.
	// If it is 0, every later state is reachable.
	Deepness int

	// If Random is non-nil, the allowed transitions of
	// each row get random probabilities.
	Random *rand.Rand
}

// Create creates the matrices.
func (f Forward) Create() ([][]float64, []float64, error) {
	if f.States < 1 {
		return nil, nil, fmt.Errorf("%w: %d states", ErrInvalidConfig, f.States)
	}
	if f.Deepness < 0 {
		return nil, nil, fmt.Errorf("%w: deepness %d", ErrInvalidConfig, f.Deepness)
	}
	deepness := f.Deepness
	if deepness == 0 || deepness > f.States {
		deepness = f.States
	}
	trans := newMatrix(f.States, f.States, math.Inf(-1))
	for i := range trans {
		end := i + deepness
		if end > f.States {
			end = f.States
		}
		var probs []float64
		if f.Random != nil {
			probs = randomDist(f.Random, end-i)
		} else {
			probs = filledVector(end-i, -math.Log(float64(end-i)))
		}
		copy(trans[i][i:end], probs)
	}
	return trans, startInFirst(f.States), nil
}

// Custom is a Topology with caller-supplied matrices.
//
// The matrices are used as given, without
// renormalization, so rows may describe unreachable or
// absorbing states.
type Custom struct {
	Transitions [][]float64
	Init        []float64

	// Log indicates that the matrices are already in the
	// log domain.
	// Otherwise, they are linear probabilities.
	Log bool
}

// Create validates and copies the matrices.
func (c Custom) Create() ([][]float64, []float64, error) {
	n := len(c.Transitions)
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: empty transition matrix", ErrInvalidConfig)
	}
	if len(c.Init) != n {
		return nil, nil, fmt.Errorf("%w: %d initial probabilities for %d states",
			ErrInvalidConfig, len(c.Init), n)
	}
	for i, row := range c.Transitions {
		if len(row) != n {
			return nil, nil, fmt.Errorf("%w: transition row %d has length %d (expected %d)",
				ErrInvalidConfig, i, len(row), n)
		}
	}
	if c.Log {
		return copyMatrix(c.Transitions), append([]float64{}, c.Init...), nil
	}
	for _, row := range c.Transitions {
		if err := checkProbs(row); err != nil {
			return nil, nil, err
		}
	}
	if err := checkProbs(c.Init); err != nil {
		return nil, nil, err
	}
	return LogMatrix(c.Transitions), LogVector(c.Init), nil
}

func checkProbs(probs []float64) error {
	for _, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("%w: invalid probability %v", ErrInvalidConfig, p)
		}
	}
	return nil
}

func startInFirst(states int) []float64 {
	res := filledVector(states, math.Inf(-1))
	res[0] = 0
	return res
}
