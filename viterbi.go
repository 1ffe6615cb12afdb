package hmm

import "math"

// LogDecode returns the most probable sequence of hidden
// states given the observation sequence, along with the
// log joint probability of that path and the
// observations.
//
// If no hidden sequence can explain the observations, the
// path is nil and the log probability is -infinity.
// An empty sequence yields an empty path with log
// probability 0.
//
// Ties are broken in favor of lower state indices.
func (h *HMM) LogDecode(seq []Obs) ([]int, float64) {
	if len(seq) == 0 {
		return []int{}, 0
	}
	emit := emissionTable(h, seq)
	n := h.NumStates()

	delta := make([]float64, n)
	for i, p := range h.Init {
		delta[i] = p + emit[0][i]
	}

	// backptrs[t][j] is the best predecessor of state j at
	// time t.
	backptrs := make([][]int, len(seq))
	scratch := make([]float64, n)
	for t := 1; t < len(seq); t++ {
		backptrs[t] = make([]int, n)
		newDelta := make([]float64, n)
		for j := range newDelta {
			for i, d := range delta {
				scratch[i] = d + h.Transitions[i][j]
			}
			best := argmax(scratch)
			backptrs[t][j] = best
			newDelta[j] = scratch[best] + emit[t][j]
		}
		delta = newDelta
	}

	last := argmax(delta)
	logProb := delta[last]
	if math.IsInf(logProb, -1) {
		return nil, logProb
	}
	path := make([]int, len(seq))
	path[len(path)-1] = last
	for t := len(seq) - 1; t > 0; t-- {
		path[t-1] = backptrs[t][path[t]]
	}
	return path, logProb
}

// Decode is like LogDecode, but the path probability is
// returned in the linear domain.
//
// The result is the probability of a single path, not of
// the observations, so it never exceeds Evaluate.
func (h *HMM) Decode(seq []Obs) ([]int, float64) {
	path, logProb := h.LogDecode(seq)
	return path, math.Exp(logProb)
}
