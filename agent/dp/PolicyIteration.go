// Package dp implements dynamic programming algorithms for finite MDPs
// with known transition models
package dp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/golearn-dp/agent/policy"
	env "github.com/samuelfneumann/golearn-dp/environment"
	"github.com/samuelfneumann/golearn-dp/experiment"
	"github.com/samuelfneumann/golearn-dp/experiment/checkpointer"
	"github.com/samuelfneumann/golearn-dp/utils/matutils"
)

// Result is the outcome of running PolicyIteration
type Result struct {
	// Policy is the last policy computed. It is optimal if Converged.
	Policy policy.Deterministic

	// Values is the value function of the last evaluated policy, which
	// is Policy itself if Converged
	Values *mat.VecDense

	// Iterations is the number of policy improvement steps taken
	Iterations int

	// Converged is false if the iteration limit was reached before the
	// policy became stable
	Converged bool

	// UnconvergedEvaluations counts the policy evaluations which hit
	// their sweep limit
	UnconvergedEvaluations int
}

// PolicyIteration computes an optimal deterministic policy of a finite
// MDP by alternating policy evaluation and greedy policy improvement
// until the policy no longer changes.
//
// If an Evaluator is attached, the current policy is evaluated by
// Monte-Carlo rollouts once per iteration and the average return is
// appended to the Trace given to Solve. These samples are diagnostics
// only and do not affect the computed policy.
type PolicyIteration struct {
	model        env.Model
	config       Config
	evaluator    *experiment.Evaluator
	checkpointer checkpointer.Checkpointer
	logger       *slog.Logger
}

// New returns a new PolicyIteration agent for model m
func New(m env.Model, c Config) (*PolicyIteration, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid config: %v", err)
	}
	if m.StateCount() <= 0 || m.ActionCount() <= 0 {
		return nil, fmt.Errorf("new: model must have states and actions, "+
			"got %d states and %d actions", m.StateCount(), m.ActionCount())
	}

	return &PolicyIteration{
		model:  m,
		config: c,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetEvaluator attaches the Evaluator used to record the evaluation
// trace. A nil Evaluator disables the trace.
func (p *PolicyIteration) SetEvaluator(e *experiment.Evaluator) {
	p.evaluator = e
}

// SetCheckpointer attaches a Checkpointer which is given the improved
// policy of each iteration
func (p *PolicyIteration) SetCheckpointer(c checkpointer.Checkpointer) {
	p.checkpointer = c
}

// SetLogger sets the logger. By default nothing is logged.
func (p *PolicyIteration) SetLogger(l *slog.Logger) {
	p.logger = l
}

// Config returns the configuration of the agent
func (p *PolicyIteration) Config() Config {
	return p.config
}

// Solve runs policy iteration starting from a policy drawn uniformly
// at random using the configured seed. If trace is non-nil and an
// Evaluator is attached, one evaluation sample is appended to trace
// per iteration.
func (p *PolicyIteration) Solve(trace *experiment.Trace) (Result, error) {
	init := policy.NewRandom(p.model.StateCount(), p.model.ActionCount(),
		p.config.Seed)
	return p.SolveFrom(init, trace)
}

// SolveFrom runs policy iteration starting from the policy init
func (p *PolicyIteration) SolveFrom(init policy.Deterministic,
	trace *experiment.Trace) (Result, error) {
	err := init.Validate(p.model.StateCount(), p.model.ActionCount())
	if err != nil {
		return Result{}, fmt.Errorf("solveFrom: invalid initial policy: %v",
			err)
	}

	result := Result{Policy: init.Clone()}
	for i := 0; i < p.config.MaxIterations; i++ {
		result.Iterations = i + 1

		if trace != nil && p.evaluator != nil {
			score, err := p.evaluator.Evaluate(result.Policy,
				p.config.EvalEpisodes)
			if err != nil {
				return result, fmt.Errorf("solveFrom: iteration %d: %v",
					i+1, err)
			}
			trace.Append(score)
		}

		v, err := p.evaluate(result.Policy)
		if errors.Is(err, ErrNotConverged) {
			result.UnconvergedEvaluations++
			p.logger.Warn("policy evaluation did not converge, "+
				"continuing with best-effort values",
				"iteration", i+1, "max_sweeps", p.config.MaxSweeps)
		} else if err != nil {
			return result, fmt.Errorf("solveFrom: iteration %d: %v", i+1, err)
		}
		valueChange := math.Inf(1)
		if result.Values != nil {
			valueChange = matutils.L1Distance(result.Values, v)
		}
		result.Values = v

		next := ExtractPolicy(p.model, v, p.config.Discount)
		p.logger.Debug("policy iteration step", "iteration", i+1,
			"changed", changed(result.Policy, next),
			"value_change", valueChange)

		if p.checkpointer != nil {
			if err := p.checkpointer.Checkpoint(i+1, next); err != nil {
				return result, fmt.Errorf("solveFrom: %v", err)
			}
		}

		if next.Equal(result.Policy) {
			result.Converged = true
			p.logger.Info("policy iteration converged",
				"iterations", result.Iterations)
			return result, nil
		}
		result.Policy = next
	}

	p.logger.Warn("policy iteration reached its iteration limit, "+
		"returning the last policy", "max_iterations",
		p.config.MaxIterations)
	return result, nil
}

// evaluate computes the value function of pi with the configured
// evaluation method
func (p *PolicyIteration) evaluate(pi policy.Deterministic) (*mat.VecDense,
	error) {
	if p.config.Evaluation == Linear {
		return SolvePolicyValues(p.model, pi, p.config.Discount)
	}

	v, sweeps, err := EvaluatePolicy(p.model, pi, p.config.Discount,
		p.config.Tolerance, p.config.MaxSweeps)
	p.logger.Debug("policy evaluated", "sweeps", sweeps)
	return v, err
}

// changed returns the number of states in which two policies differ
func changed(a, b policy.Deterministic) int {
	n := 0
	for s := range a {
		if a[s] != b[s] {
			n++
		}
	}
	return n
}
