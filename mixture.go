package hmm

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	serializer.RegisterTypedDeserializer((&Mixture{}).SerializerType(), DeserializeMixture)
}

// Mixture is a weighted combination of Distributions.
type Mixture struct {
	// Weights stores the log weight of each component.
	Weights []float64

	Components []Distribution
}

// NewMixture creates a Mixture from log weights and
// components with matching dimensions.
func NewMixture(logWeights []float64, components []Distribution) (*Mixture, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: mixture needs at least one component", ErrInvalidConfig)
	}
	if len(logWeights) != len(components) {
		return nil, fmt.Errorf("%w: %d weights for %d components", ErrInvalidConfig,
			len(logWeights), len(components))
	}
	dim := components[0].Dimension()
	for i, c := range components {
		if c.Dimension() != dim {
			return nil, fmt.Errorf("%w: component %d has dimension %d (expected %d)",
				ErrInvalidConfig, i, c.Dimension(), dim)
		}
	}
	return &Mixture{Weights: logWeights, Components: components}, nil
}

// DeserializeMixture deserializes a Mixture.
func DeserializeMixture(d []byte) (m *Mixture, err error) {
	defer essentials.AddCtxTo("deserialize Mixture", &err)
	var weights []float64
	var comps []serializer.Serializer
	if err := serializer.DeserializeAny(d, &weights, &comps); err != nil {
		return nil, err
	}
	dists, err := deserializeDists(comps)
	if err != nil {
		return nil, err
	}
	return NewMixture(weights, dists)
}

// Dimension returns the dimension of the components.
func (m *Mixture) Dimension() int {
	return m.Components[0].Dimension()
}

// LogProb returns the log density of the mixture.
func (m *Mixture) LogProb(obs Obs) float64 {
	terms := make([]float64, len(m.Components))
	for i, c := range m.Components {
		terms[i] = m.Weights[i] + c.LogProb(obs)
	}
	return logSumExp(terms)
}

// Fit performs one expectation-maximization step.
// Component responsibilities are computed with the
// current parameters, then every component is re-fit and
// the weights are re-estimated.
func (m *Mixture) Fit(obs []Obs, weights []float64, opts *FitOptions) error {
	if len(obs) != len(weights) {
		return fmt.Errorf("%w: %d observations but %d weights", ErrInvalidConfig,
			len(obs), len(weights))
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return ErrZeroWeight
	}

	compWeights := make([][]float64, len(m.Components))
	for i := range compWeights {
		compWeights[i] = make([]float64, len(obs))
	}
	terms := make([]float64, len(m.Components))
	for n, o := range obs {
		for i, c := range m.Components {
			terms[i] = m.Weights[i] + c.LogProb(o)
		}
		norm := logSumExp(terms)
		if math.IsInf(norm, -1) {
			continue
		}
		for i, t := range terms {
			compWeights[i][n] = weights[n] * math.Exp(t-norm)
		}
	}

	newWeights := make([]float64, len(m.Components))
	for i, c := range m.Components {
		var compTotal float64
		for _, w := range compWeights[i] {
			compTotal += w
		}
		newWeights[i] = math.Log(compTotal / total)
		if compTotal == 0 {
			continue
		}
		if err := c.Fit(obs, compWeights[i], opts); err != nil {
			return fmt.Errorf("mixture component %d: %w", i, err)
		}
	}
	m.Weights = newWeights
	return nil
}

// Clone creates a deep copy of the mixture.
func (m *Mixture) Clone() Distribution {
	res := &Mixture{
		Weights:    append([]float64{}, m.Weights...),
		Components: make([]Distribution, len(m.Components)),
	}
	for i, c := range m.Components {
		res.Components[i] = c.Clone()
	}
	return res
}

// Mean returns the weighted mean of the components.
// It returns nil if a component has no Mean method.
func (m *Mixture) Mean() []float64 {
	res := make([]float64, m.Dimension())
	for i, c := range m.Components {
		meaner, ok := c.(Meaner)
		if !ok {
			return nil
		}
		w := math.Exp(m.Weights[i])
		if w == 0 {
			continue
		}
		for j, x := range meaner.Mean() {
			res[j] += w * x
		}
	}
	return res
}

// Mode returns the most probable symbol of a mixture of
// Categorical distributions.
// It returns nil if a component is not Categorical.
func (m *Mixture) Mode() Obs {
	var probs []float64
	for i, c := range m.Components {
		cat, ok := c.(*Categorical)
		if !ok {
			return nil
		}
		for len(probs) < cat.Symbols() {
			probs = append(probs, 0)
		}
		w := math.Exp(m.Weights[i])
		for k, p := range cat.LogProbs {
			probs[k] += w * math.Exp(p)
		}
	}
	return Obs{float64(argmax(probs))}
}

// PointEstimate returns the mode of a discrete mixture,
// or the mean of a continuous one.
func (m *Mixture) PointEstimate() (Obs, error) {
	if mode := m.Mode(); mode != nil {
		return mode, nil
	}
	if mean := m.Mean(); mean != nil {
		return Obs(mean), nil
	}
	return nil, errors.New("mixture components have neither a mode nor a mean")
}

// SerializerType returns the unique ID used to serialize
// a Mixture with the serializer package.
func (m *Mixture) SerializerType() string {
	return "github.com/unixpickle/hmm/v2.Mixture"
}

// Serialize serializes the mixture.
//
// Every component must implement serializer.Serializer.
func (m *Mixture) Serialize() (data []byte, err error) {
	defer essentials.AddCtxTo("serialize Mixture", &err)
	comps, err := serializeDists(m.Components)
	if err != nil {
		return nil, err
	}
	return serializer.SerializeAny(m.Weights, comps)
}
