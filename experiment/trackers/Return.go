package trackers

import (
	"fmt"

	ts "github.com/samuelfneumann/golearn-dp/timestep"
)

// Return tracks and saves the discounted episodic return in an
// experiment. When an environment returns a TimeStep, this Tracker
// will extract the reward and accumulate the return for each episode
// in the experiment. The reward of step number n is discounted by
// discount^(n-1), so the first reward of an episode is undiscounted.
//
// Note: An episode must finish for this Tracker to save its data.
// If the last episode in an experiment does not finish, that episode's
// return will not be saved.
type Return struct {
	discount       float64
	lastTimeStep   int
	scale          float64
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string, discount float64) *Return {
	return &Return{
		discount:     discount,
		lastTimeStep: -1,
		scale:        1.0,
		filename:     filename,
	}
}

// Track tracks the rewards seen on a timestep. By calling this method
// on every timestep, the Tracker will store all rewards seen in the
// episode, and save the discounted sum of rewards for that episode as
// the episodic return.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(step ts.TimeStep) {
	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number)
		panic(msg)
	}

	// The first step of an episode carries no reward
	if step.First() {
		r.lastTimeStep = step.Number
		return
	}

	r.currentReturn += r.scale * step.Reward
	r.scale *= r.discount
	r.lastTimeStep = step.Number

	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)

		// Reset tracking variables
		r.currentReturn = 0.0
		r.scale = 1.0
		r.lastTimeStep = -1
	}
}

// Data returns the returns of all finished episodes
func (r *Return) Data() []float64 {
	return r.episodeReturns
}

// Save saves the data tracked by the Return Tracker to disk.
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
