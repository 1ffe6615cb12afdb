package hmm

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
)

// DefaultTolerance is the convergence threshold used
// when BaumWelch.Tolerance is 0.
const DefaultTolerance = 1e-4

// Status describes the progress of a BaumWelch run.
type Status int

const (
	NotStarted Status = iota
	Iterating
	Converged
	MaxIterationsReached
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max iterations reached"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// BaumWelch trains an HMM with the Baum-Welch
// expectation-maximization algorithm.
//
// The model is updated in place.
// While a run is in progress, nothing else may read or
// modify the model.
//
// If an emission's Fit method fails, the error is
// returned and the model is left partially updated.
// Fit fails, for example, when a continuous emission is
// never visited (zero total weight) or when its fitted
// variance collapses and no regularization was supplied.
type BaumWelch struct {
	Model *HMM

	// Tolerance is the change in average per-sequence
	// log-likelihood below which training stops.
	// If it is 0, DefaultTolerance is used.
	Tolerance float64

	// Iterations caps the number of epochs.
	// If it is 0, there is no cap.
	Iterations int

	// FitOptions is passed to every emission's Fit method.
	FitOptions *FitOptions

	// Parallelism is the number of sequences to run the
	// forward-backward algorithm on concurrently.
	// If it is 0, GOMAXPROCS is used.
	Parallelism int

	// Logger receives one debug record per epoch.
	// If it is nil, slog.Default() is used.
	Logger *slog.Logger

	// Status, Iteration, and LogLikelihood report the
	// state of the last run.
	Status        Status
	Iteration     int
	LogLikelihood float64
}

// NewBaumWelch creates a BaumWelch trainer with default
// settings.
func NewBaumWelch(h *HMM) *BaumWelch {
	return &BaumWelch{Model: h}
}

// Run trains the model until convergence or until the
// iteration cap is reached.
//
// It returns the batch log-likelihood of the final epoch,
// which is the sum of the per-sequence log-likelihoods
// under the parameters before that epoch's update.
func (b *BaumWelch) Run(seqs [][]Obs) (ll float64, err error) {
	if err := b.checkBatch(seqs); err != nil {
		return 0, err
	}
	if b.Tolerance < 0 {
		return 0, fmt.Errorf("%w: negative tolerance %v", ErrInvalidConfig, b.Tolerance)
	}
	tolerance := b.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	b.Status = Iterating
	b.Iteration = 0
	lastAvg := math.NaN()
	for {
		ll, err = b.epoch(seqs)
		if err != nil {
			return ll, fmt.Errorf("Baum-Welch epoch %d: %w", b.Iteration+1, err)
		}
		b.Iteration++
		b.LogLikelihood = ll

		avg := ll / float64(len(seqs))
		delta := math.Abs(avg - lastAvg)
		b.logger().Debug("Baum-Welch epoch", "iteration", b.Iteration,
			"logLikelihood", ll, "delta", delta)

		if hasConverged(lastAvg, avg, tolerance) {
			b.Status = Converged
			return ll, nil
		}
		if b.Iterations > 0 && b.Iteration >= b.Iterations {
			b.Status = MaxIterationsReached
			return ll, nil
		}
		lastAvg = avg
	}
}

// RunEpoch performs a single training epoch.
//
// It returns the batch log-likelihood under the
// parameters before the update.
func (b *BaumWelch) RunEpoch(seqs [][]Obs) (ll float64, err error) {
	if err := b.checkBatch(seqs); err != nil {
		return 0, err
	}
	return b.epoch(seqs)
}

// RunOnline always fails with ErrBatchOnly, since the
// expectations are computed over a whole batch.
func (b *BaumWelch) RunOnline(seq []Obs) error {
	return ErrBatchOnly
}

func (b *BaumWelch) checkBatch(seqs [][]Obs) error {
	if b.Model == nil {
		return fmt.Errorf("%w: no model", ErrInvalidConfig)
	}
	if len(seqs) == 0 {
		return fmt.Errorf("%w: empty training batch", ErrInvalidConfig)
	}
	if b.Parallelism < 0 {
		return fmt.Errorf("%w: negative parallelism %d", ErrInvalidConfig, b.Parallelism)
	}
	for i, seq := range seqs {
		if err := b.Model.CheckSequence(seq); err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
	}
	return nil
}

func (b *BaumWelch) epoch(seqs [][]Obs) (float64, error) {
	results := b.forwardBackward(seqs)
	acc := newBaumWelchAcc(b.Model)
	for i, fb := range results {
		acc.Add(seqs[i], fb)
	}
	if err := acc.Update(b.FitOptions); err != nil {
		return acc.LogLikelihood, err
	}
	return acc.LogLikelihood, nil
}

func (b *BaumWelch) forwardBackward(seqs [][]Obs) []*ForwardBackward {
	parallelism := b.Parallelism
	if parallelism == 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	results := make([]*ForwardBackward, len(seqs))
	indices := make(chan int, len(seqs))
	for i := range seqs {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				results[idx] = NewForwardBackward(b.Model, seqs[idx])
			}
		}()
	}
	wg.Wait()
	return results
}

func (b *BaumWelch) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func hasConverged(last, current, tolerance float64) bool {
	if math.IsNaN(last) {
		return false
	}
	if math.IsInf(last, -1) && math.IsInf(current, -1) {
		return true
	}
	return math.Abs(current-last) < tolerance
}

// baumWelchAcc accumulates the expected statistics of one
// epoch.
type baumWelchAcc struct {
	HMM *HMM

	InitTally []float64
	Usable    int

	TransTally [][]float64

	EmitObs     []Obs
	EmitWeights [][]float64

	LogLikelihood float64
}

func newBaumWelchAcc(h *HMM) *baumWelchAcc {
	n := h.NumStates()
	return &baumWelchAcc{
		HMM:         h,
		InitTally:   filledVector(n, math.Inf(-1)),
		TransTally:  newMatrix(n, n, math.Inf(-1)),
		EmitWeights: make([][]float64, n),
	}
}

// Add accumulates the statistics of one sequence.
// Impossible sequences only contribute to the
// log-likelihood.
func (b *baumWelchAcc) Add(seq []Obs, fb *ForwardBackward) {
	ll := fb.LogLikelihood()
	b.LogLikelihood += ll
	if math.IsInf(ll, -1) || fb.Len() == 0 {
		return
	}
	b.Usable++

	for t, obs := range seq {
		dist := fb.Dist(t)
		if t == 0 {
			for i, p := range dist {
				b.InitTally[i] = addLogs(b.InitTally[i], p)
			}
		} else {
			for i, row := range fb.TransDist(t) {
				for j, p := range row {
					b.TransTally[i][j] = addLogs(b.TransTally[i][j], p)
				}
			}
		}
		b.EmitObs = append(b.EmitObs, obs)
		for i, p := range dist {
			b.EmitWeights[i] = append(b.EmitWeights[i], math.Exp(p))
		}
	}
}

// Update writes the re-estimated parameters to the model.
//
// Transition rows with no expected occupancy keep their
// previous values, as does the initial distribution when
// no sequence was usable.
func (b *baumWelchAcc) Update(opts *FitOptions) error {
	h := b.HMM
	if b.Usable > 0 {
		// Rounding can push a certain start slightly above 0.
		norm := math.Log(float64(b.Usable))
		for i, p := range b.InitTally {
			h.Init[i] = math.Min(0, p-norm)
		}
		for i, row := range b.TransTally {
			total := logSumExp(row)
			if math.IsInf(total, -1) {
				continue
			}
			for j, p := range row {
				h.Transitions[i][j] = math.Min(0, p-total)
			}
		}
	}
	for i, e := range h.Emissions {
		weights := b.EmitWeights[i]
		if weights == nil {
			weights = []float64{}
		}
		if err := e.Fit(b.EmitObs, weights, opts); err != nil {
			return fmt.Errorf("fit emission of state %d: %w", i, err)
		}
	}
	return nil
}
