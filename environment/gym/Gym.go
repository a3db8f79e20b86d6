// Package gym provides a Simulator backed by OpenAI Gym's toy-text
// environments.
//
// Only the episode dynamics come from Gym. Planning algorithms still
// need the transition table, which must be built natively for the same
// map (see package frozenlake). Environments only work with their
// default maps and episode cutoffs.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym.
package gym

import (
	"fmt"

	"github.com/samuelfneumann/gogym"
	ts "github.com/samuelfneumann/golearn-dp/timestep"
	"gonum.org/v1/gonum/mat"
)

// FrozenLake is the name of Gym's default slippery 4x4 FrozenLake
const FrozenLake = "FrozenLake-v0"

// GymEnv implements environment.Simulator for a discrete OpenAI Gym
// environment using GoGym
type GymEnv struct {
	gogym.Environment

	currentStep ts.TimeStep
	discount    float64
	done        bool
}

// New returns a new GymEnv with the given name, which must be a legal
// name of a discrete environment from the OpenAI Gym suite.
func New(name string, discount float64, seed uint64) (*GymEnv, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v",
			err)
	}
	goGymEnv.Seed(int(seed))

	return &GymEnv{
		Environment: goGymEnv,
		discount:    discount,
		done:        true,
	}, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %v", err)
	}

	t := ts.New(ts.First, 0, g.discount, state(obs), 0)
	g.currentStep = t
	g.done = false

	return t, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a int) (ts.TimeStep, bool, error) {
	if g.done {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended, call Reset")
	}

	action := mat.NewVecDense(1, []float64{float64(a)})
	obs, reward, done, err := g.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %v", err)
	}

	t := ts.New(ts.Mid, reward, g.discount, state(obs),
		g.currentStep.Number+1)
	if done {
		t.StepType = ts.Last
	}
	g.currentStep = t
	g.done = done

	return t, done, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}

// Shutdown releases the Python interpreter used by all Gym
// environments. No GymEnv may be used afterwards.
func Shutdown() {
	gogym.Close()
}

// state converts a discrete observation into a state index
func state(obs mat.Vector) int {
	return int(obs.AtVec(0))
}
