package hmm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	serializer.RegisterTypedDeserializer((&HMM{}).SerializerType(), DeserializeHMM)
}

// HMM is a hidden Markov model with a fixed number of
// states, dense transitions, and one emission
// Distribution per state.
//
// Probabilities are stored in the log domain.
// A transition or initial probability of 0 is stored as
// -infinity.
type HMM struct {
	// Transitions[i][j] is the log probability of moving
	// from state i to state j.
	Transitions [][]float64

	// Init stores the initial state distribution.
	Init []float64

	// Emissions stores the observation distribution of
	// each state.
	// All emissions have the same dimension.
	Emissions []Distribution
}

// New creates an HMM from log-domain transitions, the
// per-state emissions, and log-domain initial
// probabilities.
//
// The values are stored exactly as given.
// No renormalization is performed.
func New(transitions [][]float64, emissions []Distribution, init []float64) (*HMM, error) {
	n := len(transitions)
	if n < 1 {
		return nil, fmt.Errorf("%w: model needs at least one state", ErrInvalidConfig)
	}
	for i, row := range transitions {
		if len(row) != n {
			return nil, fmt.Errorf("%w: transition row %d has length %d (expected %d)",
				ErrInvalidConfig, i, len(row), n)
		}
		for _, x := range row {
			if math.IsNaN(x) || x > 0 {
				return nil, fmt.Errorf("%w: invalid log probability %v in row %d",
					ErrInvalidConfig, x, i)
			}
		}
	}
	if len(init) != n {
		return nil, fmt.Errorf("%w: %d initial probabilities for %d states",
			ErrInvalidConfig, len(init), n)
	}
	for _, x := range init {
		if math.IsNaN(x) || x > 0 {
			return nil, fmt.Errorf("%w: invalid initial log probability %v",
				ErrInvalidConfig, x)
		}
	}
	if len(emissions) != n {
		return nil, fmt.Errorf("%w: %d emissions for %d states", ErrInvalidConfig,
			len(emissions), n)
	}
	for i, e := range emissions {
		if e == nil {
			return nil, fmt.Errorf("%w: nil emission for state %d", ErrInvalidConfig, i)
		}
		if e.Dimension() < 1 || e.Dimension() != emissions[0].Dimension() {
			return nil, fmt.Errorf("%w: emission %d has dimension %d (expected %d)",
				ErrInvalidConfig, i, e.Dimension(), emissions[0].Dimension())
		}
	}
	return &HMM{
		Transitions: transitions,
		Init:        init,
		Emissions:   emissions,
	}, nil
}

// NewFromTopology creates an HMM whose matrices come from
// the topology and whose emissions are copies of the
// prototype.
func NewFromTopology(t Topology, proto Distribution) (*HMM, error) {
	trans, init, err := t.Create()
	if err != nil {
		return nil, err
	}
	emissions := make([]Distribution, len(trans))
	for i := range emissions {
		emissions[i] = proto.Clone()
	}
	return New(trans, emissions, init)
}

// RandomHMM creates an ergodic HMM with discrete
// observations and random parameters.
//
// If gen is non-nil, it is used to generate all of the
// random parameters.
//
// RandomHMM may be used to generate starting points for
// BaumWelch.
func RandomHMM(gen *rand.Rand, states, symbols int) *HMM {
	res := &HMM{
		Transitions: make([][]float64, states),
		Init:        randomDist(gen, states),
		Emissions:   make([]Distribution, states),
	}
	for i := 0; i < states; i++ {
		res.Transitions[i] = randomDist(gen, states)
		res.Emissions[i] = &Categorical{LogProbs: randomDist(gen, symbols)}
	}
	return res
}

// DeserializeHMM deserializes an HMM.
func DeserializeHMM(d []byte) (h *HMM, err error) {
	defer essentials.AddCtxTo("deserialize HMM", &err)

	var states int
	var transitions []float64
	var init []float64
	var emissions []serializer.Serializer
	err = serializer.DeserializeAny(d, &states, &transitions, &init, &emissions)
	if err != nil {
		return nil, err
	}
	if states < 1 || len(transitions) != states*states {
		return nil, errors.New("invalid slice size")
	}
	dists, err := deserializeDists(emissions)
	if err != nil {
		return nil, err
	}
	trans := make([][]float64, states)
	for i := range trans {
		trans[i] = transitions[i*states : (i+1)*states]
	}
	return New(trans, dists, init)
}

// NumStates returns the number of hidden states.
func (h *HMM) NumStates() int {
	return len(h.Transitions)
}

// Dimension returns the length of each observation.
func (h *HMM) Dimension() int {
	return h.Emissions[0].Dimension()
}

// CheckSequence returns an error if any observation has
// the wrong dimension for the model.
//
// The numerical routines panic on such sequences.
func (h *HMM) CheckSequence(seq []Obs) error {
	dim := h.Dimension()
	for t, o := range seq {
		if len(o) != dim {
			return fmt.Errorf("%w: observation %d has dimension %d (expected %d)",
				ErrInvalidConfig, t, len(o), dim)
		}
	}
	return nil
}

// Clone creates a deep copy of the model.
func (h *HMM) Clone() *HMM {
	res := &HMM{
		Transitions: copyMatrix(h.Transitions),
		Init:        append([]float64{}, h.Init...),
		Emissions:   make([]Distribution, len(h.Emissions)),
	}
	for i, e := range h.Emissions {
		res.Emissions[i] = e.Clone()
	}
	return res
}

// Sample samples a sequence of hidden states and
// observations of the given length.
//
// Every emission must implement Sampler.
//
// If gen is not nil, it is used instead of the global
// routines in package rand.
func (h *HMM) Sample(gen *rand.Rand, length int) ([]int, []Obs) {
	var states []int
	var obs []Obs

	probs := expVector(h.Init)
	for i := 0; i < length; i++ {
		if sum(probs) == 0 {
			panic(fmt.Sprintf("no transitions from state %d", states[len(states)-1]))
		}
		state := sampleIndex(gen, probs)
		sampler, ok := h.Emissions[state].(Sampler)
		if !ok {
			panic(fmt.Sprintf("cannot sample from %T", h.Emissions[state]))
		}
		states = append(states, state)
		obs = append(obs, sampler.Sample(gen))
		probs = expVector(h.Transitions[state])
	}

	return states, obs
}

// SerializerType returns the unique ID used to serialize
// an HMM with the serializer package.
func (h *HMM) SerializerType() string {
	return "github.com/unixpickle/hmm/v2.HMM"
}

// Serialize serializes the HMM.
//
// This requires that the emissions implement the
// serializer.Serializer interface.
func (h *HMM) Serialize() (data []byte, err error) {
	defer essentials.AddCtxTo("serialize HMM", &err)
	n := h.NumStates()
	transitions := make([]float64, 0, n*n)
	for _, row := range h.Transitions {
		transitions = append(transitions, row...)
	}
	emissions, err := serializeDists(h.Emissions)
	if err != nil {
		return nil, err
	}
	return serializer.SerializeAny(n, transitions, h.Init, emissions)
}

func expVector(logs []float64) []float64 {
	res := make([]float64, len(logs))
	for i, x := range logs {
		res[i] = math.Exp(x)
	}
	return res
}

func sum(s []float64) float64 {
	var res float64
	for _, x := range s {
		res += x
	}
	return res
}
