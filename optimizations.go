package hmm

import "fmt"

// emissionTable caches the emission log-densities of a
// sequence.
//
// Entry [t][i] is the log density of observation t under
// state i.
// Each density is computed exactly once, since the
// forward, backward, and update passes all reuse it.
func emissionTable(h *HMM, seq []Obs) [][]float64 {
	dim := h.Dimension()
	res := make([][]float64, len(seq))
	for t, o := range seq {
		if len(o) != dim {
			panic(fmt.Sprintf("observation %d has dimension %d (expected %d)",
				t, len(o), dim))
		}
		row := make([]float64, len(h.Emissions))
		for i, e := range h.Emissions {
			row[i] = e.LogProb(o)
		}
		res[t] = row
	}
	return res
}

// stepForward computes one column of the forward
// recursion.
//
// Entry j of dst becomes the log-sum over i of
// prev[i]+trans[i][j], plus emit[j].
// The scratch slice must have one entry per state.
func stepForward(dst, prev []float64, trans [][]float64, emit, scratch []float64) {
	for j := range dst {
		for i, p := range prev {
			scratch[i] = p + trans[i][j]
		}
		dst[j] = logSumExp(scratch) + emit[j]
	}
}

// stepBackward computes one column of the backward
// recursion, given the column and emissions at the next
// timestep.
func stepBackward(dst, next []float64, trans [][]float64, nextEmit, scratch []float64) {
	for i := range dst {
		for j, b := range next {
			scratch[j] = trans[i][j] + nextEmit[j] + b
		}
		dst[i] = logSumExp(scratch)
	}
}
