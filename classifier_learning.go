package hmm

import (
	"fmt"
	"log/slog"

	"github.com/unixpickle/essentials"
)

// A Learner trains a single model on a batch of
// sequences.
//
// Run returns the log-likelihood of the batch.
type Learner interface {
	Run(seqs [][]Obs) (float64, error)
}

// ClassifierLearning trains every model of a Classifier
// on the sequences labeled with its class.
type ClassifierLearning struct {
	Classifier *Classifier

	// Learner creates the trainer for a class model.
	// If it is nil, a BaumWelch with default settings is
	// used, sharing Logger and running each class on a
	// single goroutine.
	Learner func(class int, model *HMM) Learner

	// Rejection indicates that the threshold model should
	// be rebuilt after training.
	// Otherwise, the threshold model is removed.
	Rejection bool

	// Parallelism is the number of classes to train at
	// once.
	// If it is 0, GOMAXPROCS is used.
	Parallelism int

	// Logger receives a record for every trained class.
	// If it is nil, slog.Default() is used.
	Logger *slog.Logger
}

// Run trains the classifier.
//
// Each label must be a class index, and every class must
// have at least one sequence.
//
// It returns the sum of the log-likelihoods reported by
// the class learners.
// If several classes fail, the error of the lowest class
// index is returned.
func (c *ClassifierLearning) Run(seqs [][]Obs, labels []int) (ll float64, err error) {
	if c.Classifier == nil || c.Classifier.NumClasses() == 0 {
		return 0, fmt.Errorf("%w: no classifier", ErrInvalidConfig)
	}
	if c.Parallelism < 0 {
		return 0, fmt.Errorf("%w: negative parallelism %d", ErrInvalidConfig, c.Parallelism)
	}
	if len(seqs) != len(labels) {
		return 0, fmt.Errorf("%w: %d sequences but %d labels", ErrInvalidConfig,
			len(seqs), len(labels))
	}
	numClasses := c.Classifier.NumClasses()
	byClass := make([][][]Obs, numClasses)
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return 0, fmt.Errorf("%w: label %d out of range [0, %d)", ErrInvalidConfig,
				label, numClasses)
		}
		byClass[label] = append(byClass[label], seqs[i])
	}
	for class, classSeqs := range byClass {
		if len(classSeqs) == 0 {
			return 0, fmt.Errorf("%w: class %d has no sequences", ErrInvalidConfig, class)
		}
	}

	lls := make([]float64, numClasses)
	errs := make([]error, numClasses)
	essentials.ConcurrentMap(c.Parallelism, numClasses, func(class int) {
		learner := c.learner(class, c.Classifier.Models[class])
		lls[class], errs[class] = learner.Run(byClass[class])
		c.logger().Debug("trained class", "class", class,
			"sequences", len(byClass[class]), "logLikelihood", lls[class])
	})
	for class, err := range errs {
		if err != nil {
			return 0, fmt.Errorf("class %d: %w", class, err)
		}
	}
	for _, x := range lls {
		ll += x
	}

	if c.Rejection {
		c.Classifier.Threshold, err = ThresholdModel(c.Classifier.Models)
		if err != nil {
			return 0, err
		}
	} else {
		c.Classifier.Threshold = nil
	}
	return ll, nil
}

func (c *ClassifierLearning) learner(class int, model *HMM) Learner {
	if c.Learner != nil {
		return c.Learner(class, model)
	}
	bw := NewBaumWelch(model)
	bw.Logger = c.Logger
	bw.Parallelism = 1
	return bw
}

func (c *ClassifierLearning) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
