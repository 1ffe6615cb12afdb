package hmm

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestErgodic(t *testing.T) {
	for _, gen := range []*rand.Rand{nil, rand.New(rand.NewSource(1))} {
		trans, init, err := Ergodic{States: 4, Random: gen}.Create()
		if err != nil {
			t.Fatal(err)
		}
		h := &HMM{Transitions: trans, Init: init}
		checkNormalized(t, h)
		if init[0] != 0 || !math.IsInf(init[3], -1) {
			t.Errorf("unexpected initial distribution: %v", init)
		}
		for _, row := range trans {
			for _, x := range row {
				if math.IsInf(x, -1) {
					t.Errorf("unexpected missing transition in %v", row)
				}
			}
		}
		if gen == nil && math.Abs(trans[1][2]-math.Log(0.25)) > testPrecision {
			t.Errorf("expected uniform rows but got %v", trans[1])
		}
	}
}

func TestForwardTopology(t *testing.T) {
	trans, init, err := Forward{States: 4, Deepness: 2}.Create()
	if err != nil {
		t.Fatal(err)
	}
	checkNormalized(t, &HMM{Transitions: trans, Init: init})
	expected := [][]float64{
		{0.5, 0.5, 0, 0},
		{0, 0.5, 0.5, 0},
		{0, 0, 0.5, 0.5},
		{0, 0, 0, 1},
	}
	for i, row := range expected {
		for j, p := range row {
			if math.Abs(math.Exp(trans[i][j])-p) > testPrecision {
				t.Errorf("entry %d,%d: expected %f but got %f", i, j, p,
					math.Exp(trans[i][j]))
			}
		}
	}

	trans, _, err = Forward{States: 3, Random: rand.New(rand.NewSource(2))}.Create()
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range trans {
		for j, x := range row {
			if (j < i) != math.IsInf(x, -1) {
				t.Errorf("entry %d,%d: unexpected value %f", i, j, x)
			}
		}
	}
}

func TestCustomTopology(t *testing.T) {
	linear := Custom{
		Transitions: [][]float64{{0.2, 0.8}, {0, 0}},
		Init:        []float64{0.3, 0.7},
	}
	trans, init, err := linear.Create()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(trans[0][1]-math.Log(0.8)) > testPrecision ||
		!math.IsInf(trans[1][0], -1) || !math.IsInf(trans[1][1], -1) {
		t.Errorf("unexpected transitions: %v", trans)
	}
	if math.Abs(init[1]-math.Log(0.7)) > testPrecision {
		t.Errorf("unexpected initial distribution: %v", init)
	}

	logged := Custom{Transitions: trans, Init: init, Log: true}
	trans2, _, err := logged.Create()
	if err != nil {
		t.Fatal(err)
	}
	trans2[0][0] = 0
	if trans[0][0] == 0 {
		t.Error("Create did not copy the matrix")
	}
}

func TestTopologyInvalid(t *testing.T) {
	for i, top := range []Topology{
		Ergodic{States: 0},
		Forward{States: -1},
		Forward{States: 2, Deepness: -1},
		Custom{},
		Custom{Transitions: [][]float64{{1, 0}}, Init: []float64{1}},
		Custom{Transitions: [][]float64{{1}}, Init: []float64{1, 0}},
		Custom{Transitions: [][]float64{{-1}}, Init: []float64{1}},
	} {
		if _, _, err := top.Create(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("topology %d: expected ErrInvalidConfig but got %v", i, err)
		}
	}
}
