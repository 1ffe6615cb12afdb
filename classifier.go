package hmm

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	serializer.RegisterTypedDeserializer((&Classifier{}).SerializerType(),
		DeserializeClassifier)
}

// Unknown is the class index of a rejected sequence.
const Unknown = -1

// A Classifier labels sequences with the class whose
// model assigns them the highest likelihood.
//
// Once trained, a Classifier may be used from multiple
// goroutines at once.
type Classifier struct {
	// Models stores one model per class.
	Models []*HMM

	// Threshold, if non-nil, enables rejection.
	// It is usually created by ThresholdModel.
	Threshold *HMM

	// Sensitivity is the margin by which the best class
	// must beat the threshold model to be accepted.
	Sensitivity float64
}

// NewClassifier creates a classifier with one model per
// class, each created from the topology and emission
// prototype.
func NewClassifier(classes int, t Topology, proto Distribution) (*Classifier, error) {
	if classes < 1 {
		return nil, fmt.Errorf("%w: %d classes", ErrInvalidConfig, classes)
	}
	res := &Classifier{Models: make([]*HMM, classes)}
	for i := range res.Models {
		model, err := NewFromTopology(t, proto)
		if err != nil {
			return nil, err
		}
		res.Models[i] = model
	}
	return res, nil
}

// DeserializeClassifier deserializes a Classifier.
//
// If the classifier was serialized with rejection
// enabled, the threshold model is rebuilt from the
// class models.
func DeserializeClassifier(d []byte) (c *Classifier, err error) {
	defer essentials.AddCtxTo("deserialize Classifier", &err)
	var models []serializer.Serializer
	var rejection int
	var params []float64
	if err := serializer.DeserializeAny(d, &models, &rejection, &params); err != nil {
		return nil, err
	}
	if len(models) == 0 || len(params) != 1 {
		return nil, errors.New("invalid slice size")
	}
	res := &Classifier{
		Models:      make([]*HMM, len(models)),
		Sensitivity: params[0],
	}
	for i, m := range models {
		model, ok := m.(*HMM)
		if !ok {
			return nil, fmt.Errorf("not an HMM: %T", m)
		}
		res.Models[i] = model
	}
	if rejection != 0 {
		res.Threshold, err = ThresholdModel(res.Models)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// NumClasses returns the number of classes.
func (c *Classifier) NumClasses() int {
	return len(c.Models)
}

// LogLikelihoods computes the log-likelihood of the
// sequence under every class model.
func (c *Classifier) LogLikelihoods(seq []Obs) []float64 {
	res := make([]float64, len(c.Models))
	for i, m := range c.Models {
		res[i] = m.LogLikelihood(seq)
	}
	return res
}

// Compute classifies the sequence.
//
// It returns the most likely class and its
// log-likelihood.
// Ties go to the lower class index.
//
// If rejection is enabled and the best class does not
// beat the threshold model by at least Sensitivity, or if
// no class can explain the sequence, the class is Unknown
// and the threshold model's log-likelihood is returned.
// In both cases the value is a log-likelihood, not a
// normalized score; use Posteriors for probabilities.
func (c *Classifier) Compute(seq []Obs) (class int, logLikelihood float64) {
	lls := c.LogLikelihoods(seq)
	class = argmax(lls)
	logLikelihood = lls[class]
	if c.Threshold == nil {
		return class, logLikelihood
	}
	thresholdLL := c.Threshold.LogLikelihood(seq)
	if math.IsInf(logLikelihood, -1) || logLikelihood-thresholdLL < c.Sensitivity {
		return Unknown, thresholdLL
	}
	return class, logLikelihood
}

// ComputeAll classifies a batch of sequences
// concurrently.
//
// The parallelism argument specifies the number of
// sequences to classify at once.
// If it is 0 or negative, GOMAXPROCS is used.
func (c *Classifier) ComputeAll(seqs [][]Obs, parallelism int) ([]int, []float64) {
	if parallelism < 0 {
		parallelism = 0
	}
	classes := make([]int, len(seqs))
	lls := make([]float64, len(seqs))
	essentials.ConcurrentMap(parallelism, len(seqs), func(i int) {
		classes[i], lls[i] = c.Compute(seqs[i])
	})
	return classes, lls
}

// Posteriors computes the posterior probability of each
// class, assuming equal priors.
//
// If no class can explain the sequence, every entry is 0.
func (c *Classifier) Posteriors(seq []Obs) []float64 {
	lls := c.LogLikelihoods(seq)
	normalizeLogs(lls)
	for i, x := range lls {
		lls[i] = math.Exp(x)
	}
	return lls
}

// SerializerType returns the unique ID used to serialize
// a Classifier with the serializer package.
func (c *Classifier) SerializerType() string {
	return "github.com/unixpickle/hmm/v2.Classifier"
}

// Serialize serializes the classifier.
//
// The threshold model is not stored directly.
// Only whether rejection is enabled is recorded.
func (c *Classifier) Serialize() (data []byte, err error) {
	defer essentials.AddCtxTo("serialize Classifier", &err)
	models := make([]serializer.Serializer, len(c.Models))
	for i, m := range c.Models {
		models[i] = m
	}
	var rejection int
	if c.Threshold != nil {
		rejection = 1
	}
	return serializer.SerializeAny(models, rejection, []float64{c.Sensitivity})
}

// ThresholdModel creates a model whose likelihood is the
// average of the likelihoods of the given models.
//
// The result is the block-diagonal union of the models:
// a state can only move to states of the same model, and
// each model is entered with probability 1/len(models).
// The emissions are copied, so the result does not refer
// back to the models.
func ThresholdModel(models []*HMM) (*HMM, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no models", ErrInvalidConfig)
	}
	var total int
	for _, m := range models {
		total += m.NumStates()
	}
	entry := -math.Log(float64(len(models)))

	trans := newMatrix(total, total, math.Inf(-1))
	init := make([]float64, 0, total)
	emissions := make([]Distribution, 0, total)
	var offset int
	for _, m := range models {
		for i, row := range m.Transitions {
			copy(trans[offset+i][offset:], row)
		}
		for _, p := range m.Init {
			init = append(init, p+entry)
		}
		for _, e := range m.Emissions {
			emissions = append(emissions, e.Clone())
		}
		offset += m.NumStates()
	}
	return New(trans, emissions, init)
}
