// Package experiment implements functionality for evaluating policies
// by running episodes in an environment
package experiment

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Trace is an ordered sequence of average returns, recorded once per
// iteration of a learning algorithm and possibly after it has finished.
//
// The zero value is an empty Trace ready to use.
type Trace struct {
	samples []float64
}

// NewTrace returns a new, empty Trace
func NewTrace() *Trace {
	return &Trace{}
}

// Append records an average return at the end of the trace
func (t *Trace) Append(avgReturn float64) {
	t.samples = append(t.samples, avgReturn)
}

// Len returns the number of recorded samples
func (t *Trace) Len() int {
	return len(t.samples)
}

// At returns the i-th recorded sample
func (t *Trace) At(i int) float64 {
	return t.samples[i]
}

// Values returns a copy of the recorded samples
func (t *Trace) Values() []float64 {
	out := make([]float64, len(t.samples))
	copy(out, t.samples)
	return out
}

// Save gob encodes the trace to filename
func (t *Trace) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(t.Values()); err != nil {
		return fmt.Errorf("save: could not encode trace: %v", err)
	}
	return nil
}

// LoadTrace loads a Trace saved with Save
func LoadTrace(filename string) (*Trace, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadTrace: could not open trace file: %v",
			err)
	}
	defer file.Close()

	var samples []float64
	dec := gob.NewDecoder(file)
	if err = dec.Decode(&samples); err != nil {
		return nil, fmt.Errorf("loadTrace: could not decode trace: %v", err)
	}
	return &Trace{samples}, nil
}
