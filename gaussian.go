package hmm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

func init() {
	serializer.RegisterTypedDeserializer((&Normal{}).SerializerType(), DeserializeNormal)
	serializer.RegisterTypedDeserializer((&MultiNormal{}).SerializerType(),
		DeserializeMultiNormal)
}

// Normal is a univariate Gaussian Distribution.
type Normal struct {
	Mu    float64
	Sigma float64
}

// DeserializeNormal deserializes a Normal.
func DeserializeNormal(d []byte) (n *Normal, err error) {
	defer essentials.AddCtxTo("deserialize Normal", &err)
	var params []float64
	if err := serializer.DeserializeAny(d, &params); err != nil {
		return nil, err
	}
	if len(params) != 2 {
		return nil, errors.New("invalid parameter count")
	}
	return &Normal{Mu: params[0], Sigma: params[1]}, nil
}

// Dimension returns 1.
func (n *Normal) Dimension() int {
	return 1
}

// LogProb returns the log density at the observation.
func (n *Normal) LogProb(obs Obs) float64 {
	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma}.LogProb(obs[0])
}

// Fit computes the weighted maximum-likelihood mean and
// variance.
// The regularization option is added to the variance.
func (n *Normal) Fit(obs []Obs, weights []float64, opts *FitOptions) error {
	if len(obs) != len(weights) {
		return fmt.Errorf("%w: %d observations but %d weights", ErrInvalidConfig,
			len(obs), len(weights))
	}
	var total, mean float64
	for i, o := range obs {
		total += weights[i]
		mean += weights[i] * o[0]
	}
	if total == 0 {
		return ErrZeroWeight
	}
	mean /= total
	var variance float64
	for i, o := range obs {
		d := o[0] - mean
		variance += weights[i] * d * d
	}
	variance = variance/total + opts.regularization()
	if !(variance > 0) {
		return fmt.Errorf("%w: variance %v", ErrDegenerateFit, variance)
	}
	n.Mu = mean
	n.Sigma = math.Sqrt(variance)
	return nil
}

// Clone creates a copy of the distribution.
func (n *Normal) Clone() Distribution {
	res := *n
	return &res
}

// Mean returns the mean.
func (n *Normal) Mean() []float64 {
	return []float64{n.Mu}
}

// Sample samples an observation.
func (n *Normal) Sample(gen *rand.Rand) Obs {
	if gen == nil {
		return Obs{rand.NormFloat64()*n.Sigma + n.Mu}
	}
	return Obs{gen.NormFloat64()*n.Sigma + n.Mu}
}

// SerializerType returns the unique ID used to serialize
// a Normal with the serializer package.
func (n *Normal) SerializerType() string {
	return "github.com/unixpickle/hmm/v2.Normal"
}

// Serialize serializes the distribution.
func (n *Normal) Serialize() ([]byte, error) {
	return serializer.SerializeAny([]float64{n.Mu, n.Sigma})
}

// MultiNormal is a multivariate Gaussian Distribution
// with a full covariance matrix.
type MultiNormal struct {
	mean []float64
	cov  *mat.SymDense
	dist *distmv.Normal
}

// NewMultiNormal creates a MultiNormal.
// It fails if the covariance is not positive definite.
func NewMultiNormal(mean []float64, cov *mat.SymDense) (*MultiNormal, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("%w: zero-dimensional normal", ErrInvalidConfig)
	}
	if cov.SymmetricDim() != len(mean) {
		return nil, fmt.Errorf("%w: covariance is %dx%d but mean has length %d",
			ErrInvalidConfig, cov.SymmetricDim(), cov.SymmetricDim(), len(mean))
	}
	dist, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return nil, fmt.Errorf("%w: covariance is not positive definite", ErrDegenerateFit)
	}
	res := &MultiNormal{
		mean: append([]float64{}, mean...),
		cov:  mat.NewSymDense(len(mean), nil),
		dist: dist,
	}
	res.cov.CopySym(cov)
	return res, nil
}

// NewStdMultiNormal creates a standard normal with the
// given dimension.
func NewStdMultiNormal(dim int) *MultiNormal {
	cov := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, 1)
	}
	res, err := NewMultiNormal(make([]float64, dim), cov)
	if err != nil {
		panic(err)
	}
	return res
}

// DeserializeMultiNormal deserializes a MultiNormal.
func DeserializeMultiNormal(d []byte) (m *MultiNormal, err error) {
	defer essentials.AddCtxTo("deserialize MultiNormal", &err)
	var dim int
	var mean, cov []float64
	if err := serializer.DeserializeAny(d, &dim, &mean, &cov); err != nil {
		return nil, err
	}
	if dim < 1 || len(mean) != dim || len(cov) != dim*dim {
		return nil, errors.New("invalid slice size")
	}
	return NewMultiNormal(mean, mat.NewSymDense(dim, cov))
}

// Dimension returns the length of the mean vector.
func (m *MultiNormal) Dimension() int {
	return len(m.mean)
}

// LogProb returns the log density at the observation.
func (m *MultiNormal) LogProb(obs Obs) float64 {
	return m.dist.LogProb(obs)
}

// Fit computes the weighted maximum-likelihood mean and
// covariance.
// The regularization option is added to the diagonal of
// the covariance matrix.
func (m *MultiNormal) Fit(obs []Obs, weights []float64, opts *FitOptions) error {
	if len(obs) != len(weights) {
		return fmt.Errorf("%w: %d observations but %d weights", ErrInvalidConfig,
			len(obs), len(weights))
	}
	dim := m.Dimension()
	mean := make([]float64, dim)
	var total float64
	for i, o := range obs {
		total += weights[i]
		for j, x := range o {
			mean[j] += weights[i] * x
		}
	}
	if total == 0 {
		return ErrZeroWeight
	}
	for j := range mean {
		mean[j] /= total
	}
	cov := mat.NewSymDense(dim, nil)
	for i, o := range obs {
		w := weights[i] / total
		for j := 0; j < dim; j++ {
			dj := o[j] - mean[j]
			for k := j; k < dim; k++ {
				cov.SetSym(j, k, cov.At(j, k)+w*dj*(o[k]-mean[k]))
			}
		}
	}
	if reg := opts.regularization(); reg != 0 {
		for j := 0; j < dim; j++ {
			cov.SetSym(j, j, cov.At(j, j)+reg)
		}
	}
	dist, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return fmt.Errorf("%w: covariance is not positive definite", ErrDegenerateFit)
	}
	m.mean = mean
	m.cov = cov
	m.dist = dist
	return nil
}

// Clone creates a copy of the distribution.
func (m *MultiNormal) Clone() Distribution {
	res, err := NewMultiNormal(m.mean, m.cov)
	if err != nil {
		// The receiver already holds a valid factorization.
		panic(err)
	}
	return res
}

// Mean returns a copy of the mean vector.
func (m *MultiNormal) Mean() []float64 {
	return append([]float64{}, m.mean...)
}

// Covariance returns a copy of the covariance matrix.
func (m *MultiNormal) Covariance() *mat.SymDense {
	res := mat.NewSymDense(m.Dimension(), nil)
	res.CopySym(m.cov)
	return res
}

// Sample samples an observation.
func (m *MultiNormal) Sample(gen *rand.Rand) Obs {
	std := make([]float64, m.Dimension())
	for i := range std {
		if gen == nil {
			std[i] = rand.NormFloat64()
		} else {
			std[i] = gen.NormFloat64()
		}
	}
	return Obs(m.dist.TransformNormal(nil, std))
}

// SerializerType returns the unique ID used to serialize
// a MultiNormal with the serializer package.
func (m *MultiNormal) SerializerType() string {
	return "github.com/unixpickle/hmm/v2.MultiNormal"
}

// Serialize serializes the distribution.
func (m *MultiNormal) Serialize() ([]byte, error) {
	dim := m.Dimension()
	cov := make([]float64, 0, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			cov = append(cov, m.cov.At(i, j))
		}
	}
	return serializer.SerializeAny(dim, m.mean, cov)
}
