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
	serializer.RegisterTypedDeserializer((&Categorical{}).SerializerType(),
		DeserializeCategorical)
}

// An Obs is an observation for a single timestep.
//
// Scalar observations have length 1.
// Discrete symbols are stored as a single integral value.
type Obs []float64

// Scalars creates a sequence of scalar observations.
func Scalars(values ...float64) []Obs {
	res := make([]Obs, len(values))
	for i, v := range values {
		res[i] = Obs{v}
	}
	return res
}

// Symbols creates a sequence of discrete observations.
func Symbols(symbols ...int) []Obs {
	res := make([]Obs, len(symbols))
	for i, s := range symbols {
		res[i] = Obs{float64(s)}
	}
	return res
}

// FitOptions are passed unchanged from a trainer to the
// Fit method of every emission distribution.
//
// A nil *FitOptions is equivalent to the zero value.
type FitOptions struct {
	// Regularization is added to fitted variances (or to
	// the diagonal of fitted covariance matrices).
	Regularization float64

	// Laplace adds one pseudo-count to every symbol of a
	// discrete distribution before normalizing.
	Laplace bool
}

func (f *FitOptions) regularization() float64 {
	if f == nil {
		return 0
	}
	return f.Regularization
}

func (f *FitOptions) laplace() bool {
	return f != nil && f.Laplace
}

// A Distribution is the conditional distribution of
// observations given a single hidden state.
type Distribution interface {
	// Dimension returns the length of every observation
	// the distribution accepts.
	Dimension() int

	// LogProb returns the log density (or log mass) of
	// the observation.
	LogProb(obs Obs) float64

	// Fit re-estimates the parameters from weighted
	// observations.
	// The weights need not be normalized.
	//
	// If no valid parameters can be produced, an error is
	// returned and the receiver may be left unchanged.
	Fit(obs []Obs, weights []float64, opts *FitOptions) error

	// Clone creates a deep copy of the distribution.
	Clone() Distribution
}

// A Sampler is a Distribution which can draw random
// observations.
//
// If gen is nil, the global routines in package rand are
// used instead.
type Sampler interface {
	Sample(gen *rand.Rand) Obs
}

// A Meaner is a Distribution with a computable mean.
type Meaner interface {
	Mean() []float64
}

// A Moder is a discrete Distribution with a most
// probable observation.
type Moder interface {
	Mode() Obs
}

// Categorical is a Distribution over the discrete
// symbols 0 through N-1.
type Categorical struct {
	// LogProbs stores the log probability of each symbol.
	LogProbs []float64
}

// NewCategorical creates a uniform distribution over the
// given number of symbols.
func NewCategorical(symbols int) *Categorical {
	if symbols < 1 {
		panic("categorical distribution needs at least one symbol")
	}
	res := &Categorical{LogProbs: make([]float64, symbols)}
	for i := range res.LogProbs {
		res.LogProbs[i] = -math.Log(float64(symbols))
	}
	return res
}

// NewCategoricalProbs creates a Categorical from linear
// probabilities.
// The probabilities are not renormalized.
func NewCategoricalProbs(probs []float64) (*Categorical, error) {
	if len(probs) == 0 {
		return nil, fmt.Errorf("%w: empty probability vector", ErrInvalidConfig)
	}
	res := &Categorical{LogProbs: make([]float64, len(probs))}
	for i, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return nil, fmt.Errorf("%w: invalid probability %v for symbol %d",
				ErrInvalidConfig, p, i)
		}
		res.LogProbs[i] = math.Log(p)
	}
	return res, nil
}

// DeserializeCategorical deserializes a Categorical.
func DeserializeCategorical(d []byte) (c *Categorical, err error) {
	defer essentials.AddCtxTo("deserialize Categorical", &err)
	var logProbs []float64
	if err := serializer.DeserializeAny(d, &logProbs); err != nil {
		return nil, err
	}
	if len(logProbs) == 0 {
		return nil, errors.New("no symbols")
	}
	return &Categorical{LogProbs: logProbs}, nil
}

// Dimension returns 1.
func (c *Categorical) Dimension() int {
	return 1
}

// Symbols returns the number of symbols.
func (c *Categorical) Symbols() int {
	return len(c.LogProbs)
}

// LogProb returns the log probability of the symbol.
// Non-integral and out-of-range values have probability 0.
func (c *Categorical) LogProb(obs Obs) float64 {
	if k, ok := c.symbol(obs); ok {
		return c.LogProbs[k]
	}
	return math.Inf(-1)
}

// Fit sets the symbol probabilities to the weighted
// symbol frequencies.
//
// If the total weight is zero and Laplace smoothing is
// disabled, the distribution is left unchanged.
func (c *Categorical) Fit(obs []Obs, weights []float64, opts *FitOptions) error {
	if len(obs) != len(weights) {
		return fmt.Errorf("%w: %d observations but %d weights", ErrInvalidConfig,
			len(obs), len(weights))
	}
	counts := make([]float64, len(c.LogProbs))
	var total float64
	for i, o := range obs {
		k, ok := c.symbol(o)
		if !ok {
			return fmt.Errorf("%w: symbol %v", ErrOutOfRange, o)
		}
		counts[k] += weights[i]
		total += weights[i]
	}
	if opts.laplace() {
		for k := range counts {
			counts[k]++
		}
		total += float64(len(counts))
	}
	if total == 0 {
		return nil
	}
	for k, count := range counts {
		c.LogProbs[k] = math.Log(count / total)
	}
	return nil
}

// Clone creates a copy of the distribution.
func (c *Categorical) Clone() Distribution {
	return &Categorical{LogProbs: append([]float64{}, c.LogProbs...)}
}

// Mode returns the most probable symbol.
func (c *Categorical) Mode() Obs {
	return Obs{float64(argmax(c.LogProbs))}
}

// Sample samples a symbol.
func (c *Categorical) Sample(gen *rand.Rand) Obs {
	probs := make([]float64, len(c.LogProbs))
	for i, p := range c.LogProbs {
		probs[i] = math.Exp(p)
	}
	return Obs{float64(sampleIndex(gen, probs))}
}

// SerializerType returns the unique ID used to serialize
// a Categorical with the serializer package.
func (c *Categorical) SerializerType() string {
	return "github.com/unixpickle/hmm/v2.Categorical"
}

// Serialize serializes the distribution.
func (c *Categorical) Serialize() ([]byte, error) {
	return serializer.SerializeAny(c.LogProbs)
}

func (c *Categorical) symbol(obs Obs) (int, bool) {
	if len(obs) != 1 {
		return 0, false
	}
	k := int(obs[0])
	if float64(k) != obs[0] || k < 0 || k >= len(c.LogProbs) {
		return 0, false
	}
	return k, true
}
