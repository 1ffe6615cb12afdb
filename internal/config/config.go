// Package config loads training configurations and
// labeled datasets for the hmmclass command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/unixpickle/hmm/v2"
)

// Topology names.
const (
	TopologyErgodic = "ergodic"
	TopologyForward = "forward"
)

// Emission kinds.
const (
	EmissionCategorical = "categorical"
	EmissionNormal      = "normal"
	EmissionMultiNormal = "multinormal"
)

// TrainConfig describes a classifier and how to train it.
type TrainConfig struct {
	// Classes is the number of classes.
	Classes int `yaml:"classes"`

	// States is the number of hidden states per class.
	States int `yaml:"states"`

	// Topology is "ergodic" (the default) or "forward".
	Topology string `yaml:"topology,omitempty"`

	// Deepness limits forward jumps for the forward
	// topology. 0 allows any forward jump.
	Deepness int `yaml:"deepness,omitempty"`

	Emission EmissionConfig `yaml:"emission"`

	// Tolerance and Iterations control Baum-Welch
	// convergence. Zero values select the defaults.
	Tolerance  float64 `yaml:"tolerance,omitempty"`
	Iterations int     `yaml:"iterations,omitempty"`

	// Regularization and Laplace are passed to every
	// emission fit.
	Regularization float64 `yaml:"regularization,omitempty"`
	Laplace        bool    `yaml:"laplace,omitempty"`

	// Rejection enables the threshold model, and
	// Sensitivity is its acceptance margin.
	Rejection   bool    `yaml:"rejection,omitempty"`
	Sensitivity float64 `yaml:"sensitivity,omitempty"`

	// Parallelism is the number of classes trained at
	// once. 0 uses every CPU.
	Parallelism int `yaml:"parallelism,omitempty"`

	// Seed randomizes the initial transition matrices
	// when non-zero. Otherwise they are uniform, which
	// leaves identical continuous emissions hard to
	// separate.
	Seed int64 `yaml:"seed,omitempty"`
}

// EmissionConfig describes the per-state emission
// distribution.
type EmissionConfig struct {
	// Kind is "categorical", "normal", or "multinormal".
	Kind string `yaml:"kind"`

	// Symbols is the alphabet size of categorical
	// emissions.
	Symbols int `yaml:"symbols,omitempty"`

	// Dimension is the observation length of
	// multinormal emissions.
	Dimension int `yaml:"dimension,omitempty"`
}

// LoadTrainConfig reads a YAML training configuration and
// validates it.
func LoadTrainConfig(path string) (*TrainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var c TrainConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// Validate reports every missing or invalid field.
func (c *TrainConfig) Validate() error {
	var errs []error
	if c.Classes < 1 {
		errs = append(errs, fmt.Errorf("classes must be positive (got %d)", c.Classes))
	}
	if c.States < 1 {
		errs = append(errs, fmt.Errorf("states must be positive (got %d)", c.States))
	}
	switch c.Topology {
	case "", TopologyErgodic, TopologyForward:
	default:
		errs = append(errs, fmt.Errorf("unknown topology %q", c.Topology))
	}
	if c.Deepness < 0 {
		errs = append(errs, fmt.Errorf("deepness must not be negative (got %d)", c.Deepness))
	}
	switch c.Emission.Kind {
	case EmissionCategorical:
		if c.Emission.Symbols < 1 {
			errs = append(errs, errors.New("categorical emissions need symbols"))
		}
	case EmissionNormal:
	case EmissionMultiNormal:
		if c.Emission.Dimension < 1 {
			errs = append(errs, errors.New("multinormal emissions need a dimension"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown emission kind %q", c.Emission.Kind))
	}
	if c.Tolerance < 0 {
		errs = append(errs, errors.New("tolerance must not be negative"))
	}
	if c.Iterations < 0 {
		errs = append(errs, errors.New("iterations must not be negative"))
	}
	if c.Regularization < 0 {
		errs = append(errs, errors.New("regularization must not be negative"))
	}
	if c.Parallelism < 0 {
		errs = append(errs, errors.New("parallelism must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", hmm.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Dimension returns the observation length the
// configured emissions expect.
func (c *TrainConfig) Dimension() int {
	if c.Emission.Kind == EmissionMultiNormal {
		return c.Emission.Dimension
	}
	return 1
}

// BuildClassifier creates an untrained classifier.
func (c *TrainConfig) BuildClassifier() (*hmm.Classifier, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	res, err := hmm.NewClassifier(c.Classes, c.topology(), c.prototype())
	if err != nil {
		return nil, err
	}
	res.Sensitivity = c.Sensitivity
	return res, nil
}

// BuildLearning creates the trainer for a classifier
// built by BuildClassifier.
func (c *TrainConfig) BuildLearning(classifier *hmm.Classifier,
	logger *slog.Logger) *hmm.ClassifierLearning {
	if logger == nil {
		logger = slog.Default()
	}
	fitOpts := &hmm.FitOptions{
		Regularization: c.Regularization,
		Laplace:        c.Laplace,
	}
	return &hmm.ClassifierLearning{
		Classifier: classifier,
		Learner: func(class int, model *hmm.HMM) hmm.Learner {
			return &hmm.BaumWelch{
				Model:       model,
				Tolerance:   c.Tolerance,
				Iterations:  c.Iterations,
				FitOptions:  fitOpts,
				Parallelism: 1,
				Logger:      logger.With("class", class),
			}
		},
		Rejection:   c.Rejection,
		Parallelism: c.Parallelism,
		Logger:      logger,
	}
}

func (c *TrainConfig) topology() hmm.Topology {
	var gen *rand.Rand
	if c.Seed != 0 {
		gen = rand.New(rand.NewSource(c.Seed))
	}
	if c.Topology == TopologyForward {
		return hmm.Forward{States: c.States, Deepness: c.Deepness, Random: gen}
	}
	return hmm.Ergodic{States: c.States, Random: gen}
}

func (c *TrainConfig) prototype() hmm.Distribution {
	switch c.Emission.Kind {
	case EmissionCategorical:
		return hmm.NewCategorical(c.Emission.Symbols)
	case EmissionNormal:
		return &hmm.Normal{Mu: 0, Sigma: 1}
	default:
		return hmm.NewStdMultiNormal(c.Emission.Dimension)
	}
}
