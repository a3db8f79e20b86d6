// Package agent defines the interfaces of agents acting in finite MDPs
package agent

import (
	"github.com/samuelfneumann/golearn-dp/timestep"
)

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. A Policy selects an
// action given the latest TimeStep of an environment.
type Policy interface {
	SelectAction(t timestep.TimeStep) int
}
