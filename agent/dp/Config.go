package dp

import (
	"fmt"
)

// Evaluation methods for computing the value function of a policy
const (
	Iterative string = "iterative"
	Linear    string = "linear"
)

// Defaults of the PolicyIteration Config
const (
	DefaultTolerance     float64 = 1e-10
	DefaultMaxSweeps     int     = 1_000_000
	DefaultMaxIterations int     = 200_000
	DefaultEvalEpisodes  int     = 100
)

// Config represents a configuration for the PolicyIteration agent
type Config struct {
	// Discount is the discount factor, in (0, 1]
	Discount float64

	// Tolerance is the L1 distance between successive value function
	// sweeps below which policy evaluation has converged
	Tolerance float64

	// MaxSweeps bounds the number of sweeps of iterative policy
	// evaluation. Zero disables the bound.
	MaxSweeps int

	// MaxIterations bounds the number of policy improvement steps
	MaxIterations int

	// EvalEpisodes is the number of Monte-Carlo episodes averaged to
	// record one sample of the evaluation trace
	EvalEpisodes int

	// Evaluation is the policy evaluation method, Iterative or Linear
	Evaluation string

	// Seed seeds the random initial policy
	Seed uint64
}

// DefaultConfig returns the default Config with discount factor
// discount
func DefaultConfig(discount float64) Config {
	return Config{
		Discount:      discount,
		Tolerance:     DefaultTolerance,
		MaxSweeps:     DefaultMaxSweeps,
		MaxIterations: DefaultMaxIterations,
		EvalEpisodes:  DefaultEvalEpisodes,
		Evaluation:    Iterative,
	}
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if c.Discount <= 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount %v not in (0, 1]", c.Discount)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("validate: tolerance must be non-negative, got %v",
			c.Tolerance)
	}
	if c.MaxSweeps < 0 {
		return fmt.Errorf("validate: max sweeps must be non-negative, "+
			"got %d", c.MaxSweeps)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("validate: max iterations must be positive, "+
			"got %d", c.MaxIterations)
	}
	if c.EvalEpisodes <= 0 {
		return fmt.Errorf("validate: evaluation episodes must be "+
			"positive, got %d", c.EvalEpisodes)
	}
	if c.Evaluation != Iterative && c.Evaluation != Linear {
		return fmt.Errorf("validate: no such evaluation method %q",
			c.Evaluation)
	}
	return nil
}
