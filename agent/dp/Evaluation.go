package dp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/golearn-dp/agent/policy"
	env "github.com/samuelfneumann/golearn-dp/environment"
)

// ErrNotConverged is returned when iterative policy evaluation hits its
// sweep limit before converging. The values returned alongside it are
// those of the last sweep.
var ErrNotConverged = errors.New("policy evaluation did not converge")

// EvaluatePolicy computes the value function of policy p in model m by
// synchronous sweeps of the Bellman expectation backup
//
//	v[s] = Σ p(s'|s, π(s)) (r + discount * v_prev[s'])
//
// starting from zero, until the L1 distance between successive sweeps
// is at most tol. At most maxSweeps sweeps are performed, with
// maxSweeps == 0 meaning no limit. EvaluatePolicy returns the value
// function and the number of sweeps performed. If the limit is reached
// the last values are returned with ErrNotConverged.
func EvaluatePolicy(m env.Model, p policy.Deterministic, discount,
	tol float64, maxSweeps int) (*mat.VecDense, int, error) {
	states := m.StateCount()
	if len(p) != states {
		panic(fmt.Sprintf("evaluatePolicy: policy covers %d states, "+
			"model has %d", len(p), states))
	}

	v := make([]float64, states)
	prev := make([]float64, states)

	sweeps := 0
	for maxSweeps == 0 || sweeps < maxSweeps {
		sweeps++
		copy(prev, v)

		for s := 0; s < states; s++ {
			v[s] = backup(m.Transitions(s, p[s]), prev, discount)
		}

		if floats.Distance(prev, v, 1) <= tol {
			return mat.NewVecDense(states, v), sweeps, nil
		}
	}

	return mat.NewVecDense(states, v), sweeps, fmt.Errorf("evaluatePolicy: "+
		"%d sweeps: %w", sweeps, ErrNotConverged)
}

// SolvePolicyValues computes the value function of policy p in model m
// exactly, by solving the linear system (I - discount * P_π) v = r_π.
//
// States from which no non-zero reward can be reached under p, such as
// absorbing terminal states, have value zero and are pinned to it. An
// error is returned if the remaining system is singular, which happens
// when discount is 1 and the policy collects reward forever.
func SolvePolicyValues(m env.Model, p policy.Deterministic,
	discount float64) (*mat.VecDense, error) {
	states := m.StateCount()
	if len(p) != states {
		return nil, fmt.Errorf("solvePolicyValues: policy covers %d "+
			"states, model has %d", len(p), states)
	}

	zero := zeroValueStates(m, p)
	a := mat.NewDense(states, states, nil)
	b := mat.NewVecDense(states, nil)
	for s := 0; s < states; s++ {
		a.Set(s, s, 1.0)
		if zero[s] {
			continue
		}

		expectedReward := 0.0
		for _, tr := range m.Transitions(s, p[s]) {
			expectedReward += tr.Probability * tr.Reward
			if !zero[tr.Next] {
				a.Set(s, tr.Next, a.At(s, tr.Next)-discount*tr.Probability)
			}
		}
		b.SetVec(s, expectedReward)
	}

	var v mat.VecDense
	if err := v.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("solvePolicyValues: system is singular "+
				"or ill-conditioned (condition number %v)", float64(cond))
		}
		return nil, fmt.Errorf("solvePolicyValues: %v", err)
	}
	return &v, nil
}

// zeroValueStates returns which states cannot reach a transition with
// non-zero reward when following p. Their value is zero for any
// discount.
func zeroValueStates(m env.Model, p policy.Deterministic) []bool {
	states := m.StateCount()
	live := make([]bool, states)

	for changed := true; changed; {
		changed = false
		for s := 0; s < states; s++ {
			if live[s] {
				continue
			}
			for _, tr := range m.Transitions(s, p[s]) {
				if tr.Probability > 0 && (tr.Reward != 0 || live[tr.Next]) {
					live[s] = true
					changed = true
					break
				}
			}
		}
	}

	zero := make([]bool, states)
	for s := range zero {
		zero[s] = !live[s]
	}
	return zero
}

// backup returns the expected one-step return of the outcomes, given
// the values v of next states
func backup(outcomes []env.Transition, v []float64, discount float64) float64 {
	total := 0.0
	for _, tr := range outcomes {
		total += tr.Probability * (tr.Reward + discount*v[tr.Next])
	}
	return total
}
