// Package tabular implements finite MDPs described by an explicit
// transition table
package tabular

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	env "github.com/samuelfneumann/golearn-dp/environment"
	ts "github.com/samuelfneumann/golearn-dp/timestep"
)

// ProbabilityTolerance is the amount by which the probabilities of the
// outcomes of a state-action pair may differ from 1.0
const ProbabilityTolerance float64 = 1e-9

// Table is a transition table indexed as table[state][action]
type Table [][][]env.Transition

// MDP is a finite MDP with an explicit transition table. MDP implements
// both the environment.Model and environment.Simulator interfaces.
//
// MDP is not safe for concurrent use.
type MDP struct {
	env.Starter
	ender env.Ender

	table    Table
	states   int
	actions  int
	discount float64

	// outcomes[s][a] samples the index of an outcome of table[s][a]
	outcomes    [][]distuv.Categorical
	currentStep ts.TimeStep
	started     bool
}

// New returns a new MDP with transition table t. Start states are
// sampled from s, and episodes are additionally cut off by e if e is
// non-nil. The seed determines the sequence of sampled transitions.
func New(t Table, s env.Starter, e env.Ender, discount float64,
	seed uint64) (*MDP, error) {
	if err := Validate(t); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if s == nil {
		return nil, fmt.Errorf("new: starter must not be nil")
	}
	if discount <= 0 || discount > 1 {
		return nil, fmt.Errorf("new: discount %v not in (0, 1]", discount)
	}

	// All outcome distributions draw from one source so that a single
	// seed determines the episodes
	source := rand.NewSource(seed)
	outcomes := make([][]distuv.Categorical, len(t))
	for state := range t {
		outcomes[state] = make([]distuv.Categorical, len(t[state]))
		for action, tr := range t[state] {
			weights := make([]float64, len(tr))
			for i := range tr {
				weights[i] = tr[i].Probability
			}
			outcomes[state][action] = distuv.NewCategorical(weights, source)
		}
	}

	return &MDP{
		Starter:  s,
		ender:    e,
		table:    t,
		states:   len(t),
		actions:  len(t[0]),
		discount: discount,
		outcomes: outcomes,
	}, nil
}

// Validate checks that t is a well formed transition table: every
// state has the same non-zero number of actions, every action has at
// least one outcome, next states are in range, probabilities are
// non-negative and the probabilities of each state-action pair sum to
// one.
func Validate(t Table) error {
	if len(t) == 0 {
		return fmt.Errorf("validate: transition table has no states")
	}

	actions := len(t[0])
	if actions == 0 {
		return fmt.Errorf("validate: transition table has no actions")
	}

	for s := range t {
		if len(t[s]) != actions {
			return fmt.Errorf("validate: state %d has %d actions, want %d",
				s, len(t[s]), actions)
		}

		for a := range t[s] {
			if len(t[s][a]) == 0 {
				return fmt.Errorf("validate: state %d action %d has no "+
					"outcomes", s, a)
			}

			total := 0.0
			for _, tr := range t[s][a] {
				if tr.Next < 0 || tr.Next >= len(t) {
					return fmt.Errorf("validate: state %d action %d "+
						"transitions to state %d out of range [0, %d)", s, a,
						tr.Next, len(t))
				}
				if tr.Probability < 0 || math.IsNaN(tr.Probability) {
					return fmt.Errorf("validate: state %d action %d has "+
						"invalid probability %v", s, a, tr.Probability)
				}
				total += tr.Probability
			}

			if math.Abs(total-1.0) > ProbabilityTolerance {
				return fmt.Errorf("validate: probabilities of state %d "+
					"action %d sum to %v", s, a, total)
			}
		}
	}
	return nil
}

// StateCount returns the number of states in the MDP
func (m *MDP) StateCount() int {
	return m.states
}

// ActionCount returns the number of actions in each state of the MDP
func (m *MDP) ActionCount() int {
	return m.actions
}

// Transitions returns the outcomes of taking action in state
func (m *MDP) Transitions(state, action int) []env.Transition {
	return m.table[state][action]
}

// Discount returns the discount factor of the MDP
func (m *MDP) Discount() float64 {
	return m.discount
}

// Reset resets the environment to a starting state
func (m *MDP) Reset() (ts.TimeStep, error) {
	start := m.Start()
	if start < 0 || start >= m.states {
		return ts.TimeStep{}, fmt.Errorf("reset: start state %d out of "+
			"range [0, %d)", start, m.states)
	}

	m.currentStep = ts.New(ts.First, 0, m.discount, start, 0)
	m.started = true
	return m.currentStep, nil
}

// Step takes a single environmental step, sampling the outcome of
// taking action in the current state
func (m *MDP) Step(action int) (ts.TimeStep, bool, error) {
	if !m.started {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must be " +
			"reset before stepping")
	}
	if m.currentStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has ended, " +
			"environment must be reset")
	}
	if action < 0 || action >= m.actions {
		return ts.TimeStep{}, false, fmt.Errorf("step: action %d out of "+
			"range [0, %d)", action, m.actions)
	}

	state := m.currentStep.State
	i := int(m.outcomes[state][action].Rand())
	outcome := m.table[state][action][i]

	step := ts.New(ts.Mid, outcome.Reward, m.discount, outcome.Next,
		m.currentStep.Number+1)
	if outcome.Terminal {
		step.SetEnd(ts.TerminalStateReached)
	} else if m.ender != nil {
		m.ender.End(&step)
	}
	m.currentStep = step

	return step, step.Last(), nil
}

// CurrentTimeStep returns the current timestep in the environment
func (m *MDP) CurrentTimeStep() ts.TimeStep {
	return m.currentStep
}
