package hmm

import "math"

// LogForward computes, for each timestep t and state i,
// the joint log probability of the first t+1 observations
// and being in state i at time t.
//
// The second return value is the log-likelihood of the
// whole sequence.
// An empty sequence yields no columns and a
// log-likelihood of 0.
//
// LogForward panics if an observation has the wrong
// dimension.
func (h *HMM) LogForward(seq []Obs) ([][]float64, float64) {
	return h.logForward(emissionTable(h, seq))
}

func (h *HMM) logForward(emit [][]float64) ([][]float64, float64) {
	if len(emit) == 0 {
		return [][]float64{}, 0
	}
	n := h.NumStates()
	alpha := make([][]float64, len(emit))
	alpha[0] = make([]float64, n)
	for i, p := range h.Init {
		alpha[0][i] = p + emit[0][i]
	}
	scratch := make([]float64, n)
	for t := 1; t < len(emit); t++ {
		alpha[t] = make([]float64, n)
		stepForward(alpha[t], alpha[t-1], h.Transitions, emit[t], scratch)
	}
	return alpha, logSumExp(alpha[len(alpha)-1])
}

// LogBackward computes, for each timestep t and state i,
// the log probability of the observations after t given
// state i at time t.
//
// The final column is all zeros.
func (h *HMM) LogBackward(seq []Obs) [][]float64 {
	return h.logBackward(emissionTable(h, seq))
}

func (h *HMM) logBackward(emit [][]float64) [][]float64 {
	n := h.NumStates()
	beta := make([][]float64, len(emit))
	if len(emit) == 0 {
		return beta
	}
	beta[len(beta)-1] = make([]float64, n)
	scratch := make([]float64, n)
	for t := len(emit) - 2; t >= 0; t-- {
		beta[t] = make([]float64, n)
		stepBackward(beta[t], beta[t+1], h.Transitions, emit[t+1], scratch)
	}
	return beta
}

// LogLikelihood computes the log probability of the
// sequence under the model.
func (h *HMM) LogLikelihood(seq []Obs) float64 {
	_, ll := h.LogForward(seq)
	return ll
}

// Evaluate computes the probability of the sequence.
// It may underflow to 0 for long sequences, in which case
// LogLikelihood should be used instead.
func (h *HMM) Evaluate(seq []Obs) float64 {
	return math.Exp(h.LogLikelihood(seq))
}

// ForwardBackward stores the results of the
// forward-backward algorithm on a sequence.
type ForwardBackward struct {
	hmm   *HMM
	emit  [][]float64
	alpha [][]float64
	beta  [][]float64
	ll    float64
}

// NewForwardBackward runs the forward-backward algorithm
// on the sequence.
func NewForwardBackward(h *HMM, seq []Obs) *ForwardBackward {
	emit := emissionTable(h, seq)
	alpha, ll := h.logForward(emit)
	return &ForwardBackward{
		hmm:   h,
		emit:  emit,
		alpha: alpha,
		beta:  h.logBackward(emit),
		ll:    ll,
	}
}

// Len returns the length of the sequence.
func (f *ForwardBackward) Len() int {
	return len(f.emit)
}

// LogLikelihood returns the log probability of the
// sequence.
func (f *ForwardBackward) LogLikelihood() float64 {
	return f.ll
}

// Forward returns the forward column at time t.
// The caller should not modify the result.
func (f *ForwardBackward) Forward(t int) []float64 {
	return f.alpha[t]
}

// Backward returns the backward column at time t.
// The caller should not modify the result.
func (f *ForwardBackward) Backward(t int) []float64 {
	return f.beta[t]
}

// Dist computes the log posterior distribution over
// states at time t.
//
// If the sequence is impossible, every entry is
// -infinity.
func (f *ForwardBackward) Dist(t int) []float64 {
	res := make([]float64, len(f.alpha[t]))
	for i, a := range f.alpha[t] {
		res[i] = a + f.beta[t][i]
	}
	normalizeLogs(res)
	return res
}

// TransDist computes the joint log posterior of the
// states at times t-1 and t.
// Entry [i][j] corresponds to moving from i to j.
//
// If the sequence is impossible, every entry is
// -infinity.
func (f *ForwardBackward) TransDist(t int) [][]float64 {
	n := f.hmm.NumStates()
	if math.IsInf(f.ll, -1) {
		return newMatrix(n, n, math.Inf(-1))
	}
	res := make([][]float64, n)
	for i, a := range f.alpha[t-1] {
		res[i] = make([]float64, n)
		for j, trans := range f.hmm.Transitions[i] {
			res[i][j] = a + trans + f.emit[t][j] + f.beta[t][j] - f.ll
		}
	}
	return res
}
