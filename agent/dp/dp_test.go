package dp

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/golearn-dp/agent/policy"
	env "github.com/samuelfneumann/golearn-dp/environment"
	"github.com/samuelfneumann/golearn-dp/environment/frozenlake"
	"github.com/samuelfneumann/golearn-dp/environment/tabular"
	"github.com/samuelfneumann/golearn-dp/experiment"
	"github.com/samuelfneumann/golearn-dp/experiment/checkpointer"
	"github.com/samuelfneumann/golearn-dp/utils/matutils"
)

func newMDP(t *testing.T, table tabular.Table, discount float64) *tabular.MDP {
	t.Helper()
	m, err := tabular.New(table, env.SingleStart(0), nil, discount, 1)
	require.NoError(t, err)
	return m
}

// absorbing returns the outcomes of a terminal state
func absorbing(s, actions int) [][]env.Transition {
	out := make([][]env.Transition, actions)
	for a := range out {
		out[a] = []env.Transition{{Probability: 1, Next: s, Terminal: true}}
	}
	return out
}

// chainTable is a four state chain with state 3 terminal. Action 0
// moves right, paying 1.0 on reaching state 3, action 1 stays in place
// and action 2 jumps to state 3 paying 0.5. With discount 0.9 the
// optimal values are [0.81, 0.9, 1, 0].
func chainTable() tabular.Table {
	table := make(tabular.Table, 4)
	for s := 0; s < 3; s++ {
		right := env.Transition{Probability: 1, Next: s + 1}
		if s+1 == 3 {
			right.Reward = 1
			right.Terminal = true
		}
		table[s] = [][]env.Transition{
			{right},
			{{Probability: 1, Next: s}},
			{{Probability: 1, Next: 3, Reward: 0.5, Terminal: true}},
		}
	}
	table[3] = absorbing(3, 3)
	return table
}

// randomTable returns a random MDP where every state-action pair has
// three outcomes
func randomTable(states, actions int, seed uint64) tabular.Table {
	rng := rand.New(rand.NewSource(seed))
	table := make(tabular.Table, states)
	for s := range table {
		table[s] = make([][]env.Transition, actions)
		for a := range table[s] {
			weights := []float64{rng.Float64(), rng.Float64(), rng.Float64()}
			total := weights[0] + weights[1] + weights[2]
			for _, w := range weights {
				table[s][a] = append(table[s][a], env.Transition{
					Probability: w / total,
					Next:        rng.Intn(states),
					Reward:      rng.NormFloat64(),
				})
			}
		}
	}
	return table
}

// bellmanResidual returns the L1 distance between v and one backup of
// v under policy p
func bellmanResidual(m env.Model, p policy.Deterministic, v *mat.VecDense,
	discount float64) float64 {
	backedUp := mat.NewVecDense(v.Len(), nil)
	for s := 0; s < v.Len(); s++ {
		backedUp.SetVec(s, ActionValues(m, v, s, discount).AtVec(p[s]))
	}
	return matutils.L1Distance(v, backedUp)
}

func TestEvaluatePolicyToyMDP(t *testing.T) {
	m := newMDP(t, tabular.Table{
		{{{Probability: 1, Next: 1, Reward: 1, Terminal: true}}},
		{{{Probability: 1, Next: 1, Reward: 0, Terminal: true}}},
	}, 1.0)

	v, sweeps, err := EvaluatePolicy(m, policy.Deterministic{0, 0}, 1.0,
		DefaultTolerance, DefaultMaxSweeps)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, v.RawVector().Data)
	assert.Equal(t, 2, sweeps)
}

func TestEvaluatePolicyZeroSelfLoops(t *testing.T) {
	table := make(tabular.Table, 5)
	for s := range table {
		table[s] = make([][]env.Transition, 2)
		for a := range table[s] {
			table[s][a] = []env.Transition{{Probability: 1, Next: s}}
		}
	}
	m := newMDP(t, table, 1.0)

	v, sweeps, err := EvaluatePolicy(m, policy.NewRandom(5, 2, 3), 1.0,
		DefaultTolerance, DefaultMaxSweeps)
	require.NoError(t, err)
	assert.Equal(t, 1, sweeps)
	assert.Equal(t, make([]float64, 5), v.RawVector().Data)
}

func TestEvaluatePolicySatisfiesBellmanEquation(t *testing.T) {
	const discount = 0.9
	m := newMDP(t, randomTable(8, 3, 17), discount)

	for seed := uint64(0); seed < 5; seed++ {
		p := policy.NewRandom(8, 3, seed)
		v, _, err := EvaluatePolicy(m, p, discount, DefaultTolerance,
			DefaultMaxSweeps)
		require.NoError(t, err)
		assert.Less(t, bellmanResidual(m, p, v, discount), 1e-8)
	}
}

func TestEvaluatePolicyNotConverged(t *testing.T) {
	// Reward accrues forever without discounting
	m := newMDP(t, tabular.Table{{{{Probability: 1, Next: 0, Reward: 1}}}},
		1.0)

	v, sweeps, err := EvaluatePolicy(m, policy.Deterministic{0}, 1.0,
		DefaultTolerance, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConverged))
	assert.Equal(t, 50, sweeps)
	assert.Equal(t, 50.0, v.AtVec(0), "best-effort values are returned")
}

func TestEvaluatePolicyPanicsOnShortPolicy(t *testing.T) {
	m := newMDP(t, chainTable(), 0.9)
	assert.Panics(t, func() {
		EvaluatePolicy(m, policy.Deterministic{0}, 0.9, DefaultTolerance, 0)
	})
}

func TestSolvePolicyValuesMatchesIterative(t *testing.T) {
	const discount = 0.9
	m := newMDP(t, randomTable(10, 4, 5), discount)
	p := policy.NewRandom(10, 4, 8)

	iterative, _, err := EvaluatePolicy(m, p, discount, DefaultTolerance,
		DefaultMaxSweeps)
	require.NoError(t, err)

	exact, err := SolvePolicyValues(m, p, discount)
	require.NoError(t, err)

	assert.Less(t, matutils.L1Distance(iterative, exact), 1e-7)
}

func TestSolvePolicyValuesSingular(t *testing.T) {
	// Action 0 collects reward forever, which has no finite value when
	// undiscounted
	table := tabular.Table{
		{
			{{Probability: 1, Next: 1, Reward: 1}},
			{{Probability: 1, Next: 2, Terminal: true}},
		},
		{
			{{Probability: 1, Next: 0, Reward: 1}},
			{{Probability: 1, Next: 2, Terminal: true}},
		},
		absorbing(2, 2),
	}
	m := newMDP(t, table, 1.0)

	_, err := SolvePolicyValues(m, policy.Deterministic{0, 0, 0}, 1.0)
	assert.Error(t, err)

	v, err := SolvePolicyValues(m, policy.Deterministic{1, 0, 0}, 1.0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, v.RawVector().Data, 1e-12)

	_, err = SolvePolicyValues(m, policy.Deterministic{0, 0}, 1.0)
	assert.Error(t, err)
}

func TestSolvePolicyValuesZeroRewardLoops(t *testing.T) {
	// A zero reward self-loop and a zero reward cycle between two states
	table := tabular.Table{
		{{{Probability: 1, Next: 0}}},
		{{{Probability: 1, Next: 2}}},
		{{{Probability: 1, Next: 1}}},
	}
	m := newMDP(t, table, 1.0)

	v, err := SolvePolicyValues(m, policy.Deterministic{0, 0, 0}, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, v.RawVector().Data)
}

func TestSolvePolicyValuesUndiscountedFrozenLake(t *testing.T) {
	lake, err := frozenlake.NewNamed("4x4", true, 1.0, 1)
	require.NoError(t, err)

	// Moving up along the top row never leaves it and never pays
	up := policy.Deterministic{3, 3, 3, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	exact, err := SolvePolicyValues(lake, up, 1.0)
	require.NoError(t, err)
	iterative, _, err := EvaluatePolicy(lake, up, 1.0, DefaultTolerance,
		DefaultMaxSweeps)
	require.NoError(t, err)
	assert.Less(t, matutils.L1Distance(iterative, exact), 1e-6)
	for s := 0; s < 4; s++ {
		assert.Equal(t, 0.0, exact.AtVec(s))
	}

	c := DefaultConfig(1.0)
	c.Evaluation = Linear
	c.Seed = 1
	pi, err := New(lake, c)
	require.NoError(t, err)

	result, err := pi.Solve(nil)
	require.NoError(t, err)
	require.True(t, result.Converged)
	assert.InDelta(t, 14.0/17.0, result.Values.AtVec(0), 1e-6)

	iterative, _, err = EvaluatePolicy(lake, result.Policy, 1.0,
		DefaultTolerance, DefaultMaxSweeps)
	require.NoError(t, err)
	assert.Less(t, matutils.L1Distance(iterative, result.Values), 1e-6)
}

func TestExtractPolicyTieBreak(t *testing.T) {
	table := make(tabular.Table, 3)
	for s := range table {
		table[s] = make([][]env.Transition, 4)
		for a := range table[s] {
			table[s][a] = []env.Transition{{Probability: 1, Next: s}}
		}
	}
	m := newMDP(t, table, 1.0)
	v := mat.NewVecDense(3, []float64{1, 2, 3})

	first := ExtractPolicy(m, v, 1.0)
	assert.Equal(t, policy.Deterministic{0, 0, 0}, first)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractPolicy(m, v, 1.0))
	}
}

func TestExtractPolicyGreedy(t *testing.T) {
	m := newMDP(t, chainTable(), 0.9)
	v := mat.NewVecDense(4, []float64{0.81, 0.9, 1, 0})

	assert.Equal(t, policy.Deterministic{0, 0, 0, 0}, ExtractPolicy(m, v, 0.9))

	// With no value downstream, jumping straight to the end is best
	// everywhere except next to the end
	zero := mat.NewVecDense(4, nil)
	assert.Equal(t, policy.Deterministic{2, 2, 0, 0},
		ExtractPolicy(m, zero, 0.9))
}

func TestMonotonicImprovement(t *testing.T) {
	const discount = 0.9
	m := newMDP(t, chainTable(), discount)

	p := policy.Deterministic{1, 1, 1, 1}
	prev, _, err := EvaluatePolicy(m, p, discount, DefaultTolerance, 0)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		next := ExtractPolicy(m, prev, discount)
		v, _, err := EvaluatePolicy(m, next, discount, DefaultTolerance, 0)
		require.NoError(t, err)

		for s := 0; s < v.Len(); s++ {
			assert.GreaterOrEqual(t, v.AtVec(s), prev.AtVec(s)-1e-9,
				"iteration %d state %d", i, s)
		}

		prev = v
		if next.Equal(p) {
			break
		}
		p = next
	}

	want := []float64{0.81, 0.9, 1, 0}
	for s, value := range want {
		assert.InDelta(t, value, prev.AtVec(s), 1e-9)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig(0.9).Validate())

	mutations := map[string]func(*Config){
		"zero discount":      func(c *Config) { c.Discount = 0 },
		"large discount":     func(c *Config) { c.Discount = 1.5 },
		"negative tolerance": func(c *Config) { c.Tolerance = -1 },
		"negative sweeps":    func(c *Config) { c.MaxSweeps = -1 },
		"zero iterations":    func(c *Config) { c.MaxIterations = 0 },
		"zero episodes":      func(c *Config) { c.EvalEpisodes = 0 },
		"unknown evaluation": func(c *Config) { c.Evaluation = "magic" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig(0.9)
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestNewValidates(t *testing.T) {
	m := newMDP(t, chainTable(), 0.9)
	_, err := New(m, Config{})
	assert.Error(t, err)
}

func TestSolveChain(t *testing.T) {
	for _, method := range []string{Iterative, Linear} {
		t.Run(method, func(t *testing.T) {
			m := newMDP(t, chainTable(), 0.9)
			c := DefaultConfig(0.9)
			c.Evaluation = method
			c.Seed = 4

			pi, err := New(m, c)
			require.NoError(t, err)

			result, err := pi.Solve(nil)
			require.NoError(t, err)
			assert.True(t, result.Converged)
			assert.Equal(t, policy.Deterministic{0, 0, 0, 0}, result.Policy)
			assert.Zero(t, result.UnconvergedEvaluations)

			want := []float64{0.81, 0.9, 1, 0}
			for s, value := range want {
				assert.InDelta(t, value, result.Values.AtVec(s), 1e-9)
			}
		})
	}
}

func TestSolveFromFixedPoint(t *testing.T) {
	m := newMDP(t, randomTable(12, 3, 99), 0.95)
	c := DefaultConfig(0.95)
	c.Seed = 12

	pi, err := New(m, c)
	require.NoError(t, err)

	first, err := pi.Solve(nil)
	require.NoError(t, err)
	require.True(t, first.Converged)

	again, err := pi.SolveFrom(first.Policy, nil)
	require.NoError(t, err)
	assert.True(t, again.Converged)
	assert.Equal(t, 1, again.Iterations)
	assert.Equal(t, first.Policy, again.Policy)

	// The converged policy is greedy with respect to its own values
	for s := 0; s < m.StateCount(); s++ {
		q := ActionValues(m, first.Values, s, 0.95)
		for a := 0; a < m.ActionCount(); a++ {
			assert.LessOrEqual(t, q.AtVec(a), first.Values.AtVec(s)+1e-8)
		}
	}
}

func TestSolveFromInvalidPolicy(t *testing.T) {
	m := newMDP(t, chainTable(), 0.9)
	pi, err := New(m, DefaultConfig(0.9))
	require.NoError(t, err)

	_, err = pi.SolveFrom(policy.Deterministic{0, 0}, nil)
	assert.Error(t, err)
	_, err = pi.SolveFrom(policy.Deterministic{0, 0, 0, 7}, nil)
	assert.Error(t, err)
}

func TestSolveIterationLimit(t *testing.T) {
	m := newMDP(t, chainTable(), 0.9)
	c := DefaultConfig(0.9)
	c.MaxIterations = 1

	var logs bytes.Buffer
	pi, err := New(m, c)
	require.NoError(t, err)
	pi.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	result, err := pi.SolveFrom(policy.Deterministic{1, 1, 1, 1}, nil)
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, policy.Deterministic{2, 2, 0, 0}, result.Policy,
		"the last computed policy is returned")
	assert.Contains(t, logs.String(), "iteration limit")
}

func TestSolveLogsValueChange(t *testing.T) {
	m := newMDP(t, chainTable(), 0.9)
	pi, err := New(m, DefaultConfig(0.9))
	require.NoError(t, err)

	var logs bytes.Buffer
	pi.SetLogger(slog.New(slog.NewTextHandler(&logs,
		&slog.HandlerOptions{Level: slog.LevelDebug})))

	result, err := pi.SolveFrom(policy.Deterministic{1, 1, 1, 1}, nil)
	require.NoError(t, err)
	require.True(t, result.Converged)
	assert.Contains(t, logs.String(), "value_change=+Inf")
	assert.Contains(t, logs.String(), "value_change=0")
}

func TestSolveReportsUnconvergedEvaluations(t *testing.T) {
	// Action 0 accrues reward forever, action 1 terminates
	table := tabular.Table{
		{
			{{Probability: 1, Next: 0, Reward: 1}},
			{{Probability: 1, Next: 1, Terminal: true}},
		},
		absorbing(1, 2),
	}
	m := newMDP(t, table, 1.0)

	c := DefaultConfig(1.0)
	c.MaxSweeps = 20
	c.MaxIterations = 3

	pi, err := New(m, c)
	require.NoError(t, err)

	result, err := pi.SolveFrom(policy.Deterministic{0, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Policy[0])
	assert.True(t, result.Converged)
	assert.Equal(t, result.Iterations, result.UnconvergedEvaluations)
}

func TestSolveCheckpoints(t *testing.T) {
	m := newMDP(t, chainTable(), 0.9)
	pi, err := New(m, DefaultConfig(0.9))
	require.NoError(t, err)

	filename := filepath.Join(t.TempDir(), "policy.bin")
	c, err := checkpointer.NewNStep(1, func() string { return filename })
	require.NoError(t, err)
	pi.SetCheckpointer(c)

	result, err := pi.SolveFrom(policy.Deterministic{1, 1, 1, 1}, nil)
	require.NoError(t, err)
	require.True(t, result.Converged)

	saved, err := policy.Load(filename)
	require.NoError(t, err)
	assert.Equal(t, result.Policy, saved)
}

func TestSolveFrozenLake(t *testing.T) {
	lake, err := frozenlake.NewNamed("4x4", true, 1.0, 2021)
	require.NoError(t, err)

	c := DefaultConfig(1.0)
	c.Seed = 2021
	c.EvalEpisodes = 10

	pi, err := New(lake, c)
	require.NoError(t, err)
	pi.SetEvaluator(experiment.NewEvaluator(lake, 1.0))

	trace := experiment.NewTrace()
	result, err := pi.Solve(trace)
	require.NoError(t, err)
	require.True(t, result.Converged)
	assert.Less(t, result.Iterations, 100)
	assert.Equal(t, result.Iterations, trace.Len())
	assert.NoError(t, result.Policy.Validate(16, frozenlake.NumActions))

	for i := 0; i < trace.Len(); i++ {
		assert.False(t, math.IsNaN(trace.At(i)))
		assert.GreaterOrEqual(t, trace.At(i), 0.0)
		assert.LessOrEqual(t, trace.At(i), 1.0)
	}

	// Evaluate on a fresh lake so the result does not depend on the
	// samples drawn during solving
	evalLake, err := frozenlake.NewNamed("4x4", true, 1.0, 7)
	require.NoError(t, err)
	score, err := experiment.NewEvaluator(evalLake, 1.0).Evaluate(
		result.Policy, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.74, score, 0.05)

	again, err := pi.SolveFrom(result.Policy, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Iterations)
	assert.Equal(t, result.Policy, again.Policy)
}
