package hmm

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/serializer"
	"gonum.org/v1/gonum/floats"
)

// sampleIndex samples an index from the list, given the
// probability of each index.
func sampleIndex(gen *rand.Rand, probs []float64) int {
	if len(probs) == 0 {
		panic("cannot sample from empty list")
	}
	var offset float64
	if gen == nil {
		offset = rand.Float64()
	} else {
		offset = gen.Float64()
	}
	for i, p := range probs {
		offset -= p
		if offset < 0 {
			return i
		}
	}
	return len(probs) - 1
}

// addLogs adds two numbers in the log domain.
func addLogs(x1, x2 float64) float64 {
	max := math.Max(x1, x2)
	if math.IsInf(max, -1) {
		return max
	}
	return math.Log(math.Exp(x1-max)+math.Exp(x2-max)) + max
}

// logSumExp adds a list of numbers in the log domain.
// The empty sum is -infinity.
func logSumExp(s []float64) float64 {
	if len(s) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(s)
}

// normalizeLogs shifts a log-domain vector so that its
// probabilities sum to 1.
// A vector of -infinity values is left unchanged.
func normalizeLogs(s []float64) {
	total := logSumExp(s)
	if !math.IsInf(total, 0) {
		floats.AddConst(-total, s)
	}
}

// argmax returns the first index of the largest value.
// Entries that are -infinity compare equal, so a vector
// of them yields 0.
func argmax(s []float64) int {
	return floats.MaxIdx(s)
}

// randomDist generates a random probability distribution.
//
// The probabilities are expressed in the log domain.
func randomDist(gen *rand.Rand, n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		if gen == nil {
			res[i] = rand.NormFloat64()
		} else {
			res[i] = gen.NormFloat64()
		}
	}
	normalizeLogs(res)
	return res
}

// newMatrix creates a rows x cols matrix filled with the
// given value.
func newMatrix(rows, cols int, fill float64) [][]float64 {
	res := make([][]float64, rows)
	for i := range res {
		res[i] = make([]float64, cols)
		for j := range res[i] {
			res[i][j] = fill
		}
	}
	return res
}

func copyMatrix(m [][]float64) [][]float64 {
	res := make([][]float64, len(m))
	for i, row := range m {
		res[i] = append([]float64{}, row...)
	}
	return res
}

func filledVector(n int, fill float64) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = fill
	}
	return res
}

// LogMatrix converts a matrix of probabilities to the log
// domain.
func LogMatrix(m [][]float64) [][]float64 {
	res := make([][]float64, len(m))
	for i, row := range m {
		res[i] = LogVector(row)
	}
	return res
}

// LogVector converts a vector of probabilities to the log
// domain.
func LogVector(v []float64) []float64 {
	res := make([]float64, len(v))
	for i, x := range v {
		res[i] = math.Log(x)
	}
	return res
}

func serializeDists(dists []Distribution) ([]serializer.Serializer, error) {
	res := make([]serializer.Serializer, len(dists))
	for i, d := range dists {
		ser, ok := d.(serializer.Serializer)
		if !ok {
			return nil, fmt.Errorf("not a Serializer: %T", d)
		}
		res[i] = ser
	}
	return res, nil
}

func deserializeDists(sers []serializer.Serializer) ([]Distribution, error) {
	res := make([]Distribution, len(sers))
	for i, s := range sers {
		dist, ok := s.(Distribution)
		if !ok {
			return nil, fmt.Errorf("not a Distribution: %T", s)
		}
		res[i] = dist
	}
	return res, nil
}
