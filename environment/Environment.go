// Package environment outlines the interfaces and structs needed to
// implement concrete finite MDPs
package environment

import (
	ts "github.com/samuelfneumann/golearn-dp/timestep"
)

// Transition is a single outcome of taking an action in a state
type Transition struct {
	Probability float64
	Next        int
	Reward      float64
	Terminal    bool
}

// Model implements the transition model of a finite MDP. Every action
// is available in every state.
type Model interface {
	StateCount() int
	ActionCount() int

	// Transitions returns the ordered outcomes of taking action in
	// state. The returned slice must not be modified.
	Transitions(state, action int) []Transition
}

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() int
}

// Ender determines when episodes should be ended
type Ender interface {
	End(*ts.TimeStep) bool
}

// Simulator implements a stateful simulation of an MDP. Step returns
// whether the episode has ended, either because a terminal state was
// reached or because an Ender cut the episode off.
type Simulator interface {
	Reset() (ts.TimeStep, error)
	Step(action int) (ts.TimeStep, bool, error)
	CurrentTimeStep() ts.TimeStep
}

// Environment is an MDP that exposes both its model and a simulator
type Environment interface {
	Model
	Simulator
	Discount() float64
}
