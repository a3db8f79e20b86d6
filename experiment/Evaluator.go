package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/golearn-dp/agent"
	env "github.com/samuelfneumann/golearn-dp/environment"
	"github.com/samuelfneumann/golearn-dp/experiment/trackers"
	ts "github.com/samuelfneumann/golearn-dp/timestep"
)

// DefaultEpisodes is the default number of episodes averaged over by
// Evaluate
const DefaultEpisodes int = 100

// Progress is reset at the start of each evaluation and notified after
// each evaluation episode
type Progress interface {
	Reset()
	Increment()
	Display()
}

// Evaluator estimates the expected discounted return of policies by
// Monte-Carlo rollouts in a Simulator.
//
// Each TimeStep generated is also sent to the registered Trackers, so
// that per-episode data can be saved after the evaluation.
//
// Evaluator is not safe for concurrent use since the underlying
// Simulator is stateful.
type Evaluator struct {
	env.Simulator
	discount float64
	trackers []trackers.Tracker
	progress Progress
}

// NewEvaluator returns a new Evaluator which runs episodes in sim,
// discounting rewards by discount
func NewEvaluator(sim env.Simulator, discount float64,
	t ...trackers.Tracker) *Evaluator {
	return &Evaluator{
		Simulator: sim,
		discount:  discount,
		trackers:  t,
	}
}

// Register registers a trackers.Tracker with the Evaluator so that data
// generated during evaluation can be tracked and saved
func (e *Evaluator) Register(t trackers.Tracker) {
	e.trackers = append(e.trackers, t)
}

// SetProgress sets the Progress notified after each episode. A nil
// Progress disables progress reporting.
func (e *Evaluator) SetProgress(p Progress) {
	e.progress = p
}

// Discount returns the discount factor used for returns
func (e *Evaluator) Discount() float64 {
	return e.discount
}

// RunEpisode runs a single episode following policy p and returns its
// discounted return, sum over t of discount^t * reward_t with t
// starting at 0.
func (e *Evaluator) RunEpisode(p agent.Policy) (float64, error) {
	step, err := e.Reset()
	if err != nil {
		return 0, fmt.Errorf("runEpisode: could not reset environment: %v",
			err)
	}
	e.track(step)

	total := 0.0
	scale := 1.0
	for done := false; !done; {
		action := p.SelectAction(step)

		step, done, err = e.Step(action)
		if err != nil {
			return 0, fmt.Errorf("runEpisode: could not step "+
				"environment: %v", err)
		}
		e.track(step)

		total += scale * step.Reward
		scale *= e.discount
	}

	return total, nil
}

// Evaluate runs n episodes following policy p and returns the mean of
// their discounted returns
func (e *Evaluator) Evaluate(p agent.Policy, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("evaluate: number of episodes must be "+
			"positive, got %d", n)
	}

	if e.progress != nil {
		e.progress.Reset()
	}

	scores := make([]float64, n)
	for i := range scores {
		score, err := e.RunEpisode(p)
		if err != nil {
			return 0, fmt.Errorf("evaluate: episode %d: %v", i, err)
		}
		scores[i] = score

		if e.progress != nil {
			e.progress.Increment()
			e.progress.Display()
		}
	}

	return stat.Mean(scores, nil), nil
}

// Save saves all the data cached by the Trackers to disk
func (e *Evaluator) Save() error {
	for _, t := range e.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each Tracker
func (e *Evaluator) track(t ts.TimeStep) {
	for _, tracker := range e.trackers {
		tracker.Track(t)
	}
}
