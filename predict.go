package hmm

import (
	"fmt"
	"math"
)

// A Prediction is the result of forecasting
// observations after a prefix.
type Prediction struct {
	// Observations stores the point estimate for each
	// forecast timestep.
	Observations []Obs

	// Mixtures stores the predictive distribution for
	// each forecast timestep.
	// Each one is a mixture of the state emissions,
	// weighted by the probability of the state.
	Mixtures []*Mixture

	// LogLikelihood is the log probability of the prefix
	// followed by the forecast observations.
	LogLikelihood float64
}

// Predict forecasts the next horizon observations after
// a prefix.
//
// For each forecast step, the posterior over the current
// state is pushed through the transition matrix, and the
// emissions are mixed by the resulting state
// probabilities.
// The mixture's mode (for discrete emissions) or mean is
// the point estimate.
//
// Forecasts beyond the first step feed the previous point
// estimate back in as if it had been observed.
// This is an approximate heuristic, not an exact
// multi-step predictive distribution, and its errors
// compound with the horizon.
//
// An empty prefix forecasts from the initial state
// distribution.
func (h *HMM) Predict(prefix []Obs, horizon int) (pred *Prediction, err error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon %d", ErrInvalidConfig, horizon)
	}
	if err := h.CheckSequence(prefix); err != nil {
		return nil, err
	}

	n := h.NumStates()
	pred = &Prediction{}
	var alpha []float64
	if len(prefix) > 0 {
		alphas, ll := h.LogForward(prefix)
		if math.IsInf(ll, -1) {
			return nil, ErrZeroLikelihood
		}
		alpha = alphas[len(alphas)-1]
		pred.LogLikelihood = ll
	}

	scratch := make([]float64, n)
	for step := 0; step < horizon; step++ {
		var next []float64
		if alpha == nil {
			next = append([]float64{}, h.Init...)
		} else {
			next = make([]float64, n)
			stepForward(next, alpha, h.Transitions, make([]float64, n), scratch)
		}
		normalizeLogs(next)
		if math.IsInf(logSumExp(next), -1) {
			return nil, ErrZeroLikelihood
		}

		comps := make([]Distribution, n)
		for i, e := range h.Emissions {
			comps[i] = e.Clone()
		}
		mixture := &Mixture{Weights: next, Components: comps}
		obs, err := mixture.PointEstimate()
		if err != nil {
			return nil, err
		}
		pred.Observations = append(pred.Observations, obs)
		pred.Mixtures = append(pred.Mixtures, mixture)

		emit := emissionTable(h, []Obs{obs})[0]
		newAlpha := make([]float64, n)
		if alpha == nil {
			for i, p := range h.Init {
				newAlpha[i] = p + emit[i]
			}
		} else {
			stepForward(newAlpha, alpha, h.Transitions, emit, scratch)
		}
		alpha = newAlpha
		pred.LogLikelihood = logSumExp(alpha)
	}

	return pred, nil
}
