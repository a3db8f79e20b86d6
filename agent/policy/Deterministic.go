// Package policy implements tabular policies
package policy

import (
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/golearn-dp/timestep"
)

// Deterministic is a tabular policy that always selects the action
// Deterministic[s] in state s
type Deterministic []int

// NewDeterministic returns a policy which selects action 0 in each of
// the states
func NewDeterministic(states int) Deterministic {
	return make(Deterministic, states)
}

// NewRandom returns a policy which selects an action drawn uniformly
// at random, independently for each state
func NewRandom(states, actions int, seed uint64) Deterministic {
	if actions <= 0 {
		panic(fmt.Sprintf("newRandom: actions must be positive, got %d",
			actions))
	}

	rng := rand.New(rand.NewSource(seed))
	p := make(Deterministic, states)
	for s := range p {
		p[s] = rng.Intn(actions)
	}
	return p
}

// SelectAction returns the action to take in the state of TimeStep t
func (p Deterministic) SelectAction(t timestep.TimeStep) int {
	return p[t.State]
}

// Action returns the action to take in state s
func (p Deterministic) Action(s int) int {
	return p[s]
}

// Equal returns whether p and other select the same action in every
// state
func (p Deterministic) Equal(other Deterministic) bool {
	if len(p) != len(other) {
		return false
	}
	for s := range p {
		if p[s] != other[s] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the policy
func (p Deterministic) Clone() Deterministic {
	out := make(Deterministic, len(p))
	copy(out, p)
	return out
}

// Validate returns an error if the policy does not cover exactly
// states states or selects an action outside [0, actions)
func (p Deterministic) Validate(states, actions int) error {
	if len(p) != states {
		return fmt.Errorf("validate: policy covers %d states, want %d",
			len(p), states)
	}
	for s, a := range p {
		if a < 0 || a >= actions {
			return fmt.Errorf("validate: action %d in state %d out of "+
				"range [0, %d)", a, s, actions)
		}
	}
	return nil
}

// Save saves the policy to filename
func (p Deterministic) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode([]int(p)); err != nil {
		return fmt.Errorf("save: could not encode policy: %v", err)
	}
	return nil
}

// Load loads a policy previously saved with Save
func Load(filename string) (Deterministic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("load: could not open file: %v", err)
	}
	defer file.Close()

	var p []int
	if err := gob.NewDecoder(file).Decode(&p); err != nil {
		return nil, fmt.Errorf("load: could not decode policy: %v", err)
	}
	return Deterministic(p), nil
}
