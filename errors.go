package hmm

import "errors"

var (
	// ErrInvalidConfig is returned when a model, topology,
	// or training batch is malformed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBatchOnly is returned when single-sample learning
	// is requested from a batch-only algorithm.
	ErrBatchOnly = errors.New("online learning is not supported; train on a full batch")

	// ErrZeroWeight is returned by Fit when every weight is
	// zero and the distribution cannot be estimated.
	ErrZeroWeight = errors.New("all fitting weights are zero")

	// ErrDegenerateFit is returned by Fit when the estimated
	// parameters are singular, such as a zero variance.
	// Supplying FitOptions.Regularization usually avoids it.
	ErrDegenerateFit = errors.New("degenerate fit")

	// ErrOutOfRange is returned when an observation lies
	// outside the support of a discrete distribution.
	ErrOutOfRange = errors.New("observation out of range")

	// ErrZeroLikelihood is returned when an operation needs
	// a sequence with non-zero probability.
	ErrZeroLikelihood = errors.New("sequence has zero likelihood")
)
