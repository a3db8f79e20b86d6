package environment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// CategoricalStarter returns starting states sampled from a categorical
// distribution over state indices
type CategoricalStarter struct {
	seed uint64
	rand distuv.Categorical
}

// NewCategoricalStarter returns a new CategoricalStarter which samples
// state i with probability proportional to weights[i]
func NewCategoricalStarter(weights []float64, seed uint64) (*CategoricalStarter,
	error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("newCategoricalStarter: no states to start in")
	}
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("newCategoricalStarter: weight %d is "+
				"negative (%v)", i, w)
		}
	}
	if floats.Sum(weights) == 0 {
		return nil, fmt.Errorf("newCategoricalStarter: weights sum to zero")
	}

	source := rand.NewSource(seed)
	dist := distuv.NewCategorical(weights, source)

	return &CategoricalStarter{seed, dist}, nil
}

// NewUniformStarter returns a CategoricalStarter which samples
// uniformly from the given states. A state listed twice is twice as
// likely to be sampled.
func NewUniformStarter(states []int, numStates int,
	seed uint64) (*CategoricalStarter, error) {
	weights := make([]float64, numStates)
	for _, s := range states {
		if s < 0 || s >= numStates {
			return nil, fmt.Errorf("newUniformStarter: state %d out of "+
				"range [0, %d)", s, numStates)
		}
		weights[s]++
	}
	return NewCategoricalStarter(weights, seed)
}

// Start returns a starting state
func (c *CategoricalStarter) Start() int {
	return int(c.rand.Rand())
}

// SingleStart always starts in the same state
type SingleStart int

// Start returns the starting state
func (s SingleStart) Start() int {
	return int(s)
}
