package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/unixpickle/hmm/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// A Sample is one labeled observation sequence.
//
// Exactly one of Sequence and Values should be set:
// Values holds scalar (or symbol) sequences, Sequence
// holds vector sequences.
type Sample struct {
	Label    int         `yaml:"label" msgpack:"label"`
	Sequence [][]float64 `yaml:"sequence,omitempty" msgpack:"sequence,omitempty"`
	Values   []float64   `yaml:"values,omitempty" msgpack:"values,omitempty"`
}

// Observations converts the sample to an observation
// sequence.
func (s *Sample) Observations() []hmm.Obs {
	if len(s.Values) > 0 {
		return hmm.Scalars(s.Values...)
	}
	res := make([]hmm.Obs, len(s.Sequence))
	for i, x := range s.Sequence {
		res[i] = hmm.Obs(x)
	}
	return res
}

// A Dataset is a list of labeled samples.
type Dataset struct {
	Samples []Sample `yaml:"samples" msgpack:"samples"`
}

// Sequences returns the observation sequences and their
// labels in sample order.
func (d *Dataset) Sequences() ([][]hmm.Obs, []int) {
	seqs := make([][]hmm.Obs, len(d.Samples))
	labels := make([]int, len(d.Samples))
	for i := range d.Samples {
		seqs[i] = d.Samples[i].Observations()
		labels[i] = d.Samples[i].Label
	}
	return seqs, labels
}

// LoadDataset reads a dataset. Files ending in .msgpack
// or .mp are decoded as MessagePack, and everything else
// as YAML.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var d Dataset
	if isMsgpack(path) {
		err = msgpack.Unmarshal(data, &d)
	} else {
		err = yaml.Unmarshal(data, &d)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &d, nil
}

// SaveDataset writes a dataset in the format implied by
// the file extension (see LoadDataset).
func SaveDataset(path string, d *Dataset) error {
	var data []byte
	var err error
	if isMsgpack(path) {
		data, err = msgpack.Marshal(d)
	} else {
		data, err = yaml.Marshal(d)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func isMsgpack(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return true
	}
	return false
}

// ParseSequence parses an observation sequence from the
// command line.
//
// Observations are separated by semicolons, and the
// components of one observation by commas. A sequence
// with no semicolons is read as scalars separated by
// commas or whitespace, so "0 1 2" and "0,1,2" are both
// three observations while "0,1;2,3" is two.
func ParseSequence(s string) ([]hmm.Obs, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []hmm.Obs{}, nil
	}
	if !strings.Contains(s, ";") {
		fields := strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		res := make([]hmm.Obs, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("observation %d: %w", i, err)
			}
			res[i] = hmm.Obs{x}
		}
		return res, nil
	}
	var res []hmm.Obs
	for i, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var obs hmm.Obs
		for _, f := range strings.Split(part, ",") {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("observation %d: %w", i, err)
			}
			obs = append(obs, x)
		}
		res = append(res, obs)
	}
	return res, nil
}
