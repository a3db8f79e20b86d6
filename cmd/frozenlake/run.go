package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/logrusorgru/aurora"

	"github.com/samuelfneumann/golearn-dp/agent/dp"
	"github.com/samuelfneumann/golearn-dp/agent/policy"
	"github.com/samuelfneumann/golearn-dp/config"
	env "github.com/samuelfneumann/golearn-dp/environment"
	"github.com/samuelfneumann/golearn-dp/environment/gym"
	"github.com/samuelfneumann/golearn-dp/experiment"
	"github.com/samuelfneumann/golearn-dp/experiment/checkpointer"
	"github.com/samuelfneumann/golearn-dp/experiment/plot"
	"github.com/samuelfneumann/golearn-dp/experiment/trackers"
	"github.com/samuelfneumann/golearn-dp/utils/matutils"
	"github.com/samuelfneumann/golearn-dp/utils/progressbar"
)

// run solves the lake described by c, writing results to stdout and
// logs to stderr
func run(c config.Config, stdout, stderr io.Writer) error {
	logger := slog.New(slog.NewTextHandler(stderr,
		&slog.HandlerOptions{Level: c.Level()})).
		With("run_id", uuid.NewString())
	au := aurora.NewAurora(!c.NoColor)

	lake, err := c.Lake()
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	logger.Info("created lake", "map", c.Map, "slippery", c.Slippery,
		"states", lake.StateCount(), "cutoff", c.EpisodeCutoff())

	// The native lake is both the planning model and, unless Gym is
	// used, the episode simulator
	var model env.Environment = lake
	var sim env.Simulator = model
	if c.Backend == config.Gym {
		g, err := gym.New(gym.FrozenLake, model.Discount(), c.Seed)
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		defer gym.Shutdown()
		defer g.Close()
		sim = g
		logger.Info("simulating episodes with gym", "env", gym.FrozenLake)
	}

	evaluator := experiment.NewEvaluator(sim, model.Discount())
	if c.DataDir != "" {
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			return fmt.Errorf("run: could not create data directory: %v",
				err)
		}
		evaluator.Register(trackers.NewReturn(
			filepath.Join(c.DataDir, "returns.bin"), model.Discount()))
		evaluator.Register(trackers.NewEpisodeLength(
			filepath.Join(c.DataDir, "lengths.bin")))
	}
	if c.Progress {
		evaluator.SetProgress(progressbar.NewManualProgressBar(stderr, 40,
			c.EvalEpisodes))
	}

	solver, err := dp.New(model, c.Solver())
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	solver.SetEvaluator(evaluator)
	solver.SetLogger(logger)

	if c.CheckpointDir != "" {
		if err := os.MkdirAll(c.CheckpointDir, 0o755); err != nil {
			return fmt.Errorf("run: could not create checkpoint "+
				"directory: %v", err)
		}
		// Number new checkpoints after any already in the directory
		base := checkpointBase(c.CheckpointDir)
		_, last, err := checkpointer.Latest(base, checkpointExt)
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		cp, err := checkpointer.NewNStep(c.CheckpointEvery,
			checkpointer.FilenameEnumerator(last, base, checkpointExt))
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		solver.SetCheckpointer(cp)
	}

	trace := experiment.NewTrace()
	var result dp.Result
	if c.InitPolicy != "" {
		var start policy.Deterministic
		if start, err = initialPolicy(c.InitPolicy); err != nil {
			return fmt.Errorf("run: %v", err)
		}
		logger.Info("starting from saved policy", "file", c.InitPolicy)
		result, err = solver.SolveFrom(start, trace)
	} else {
		result, err = solver.Solve(trace)
	}
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}

	if result.Converged {
		fmt.Fprintf(stdout, "Policy-Iteration converged at step %d.\n",
			result.Iterations)
	} else {
		fmt.Fprintln(stdout, au.Yellow(fmt.Sprintf("Policy-Iteration "+
			"stopped after %d steps without converging.", result.Iterations)))
	}

	score, err := evaluator.Evaluate(result.Policy, c.EvalEpisodes)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}
	fmt.Fprintf(stdout, "Average scores = %v\n", score)
	fmt.Fprint(stdout, lake.FormatPolicy(result.Policy, !c.NoColor))
	fmt.Fprint(stdout, lake.FormatValues(result.Values, !c.NoColor))
	logger.Debug("policy values", "values", matutils.Format(result.Values.T()))

	for i := 0; i < c.FinalEvaluations; i++ {
		score, err := evaluator.Evaluate(result.Policy, c.EvalEpisodes)
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		trace.Append(score)
	}
	logger.Info("evaluated policy", "samples", trace.Len(),
		"final", trace.At(trace.Len()-1))

	return save(c, trace, evaluator, logger)
}

const checkpointExt = ".bin"

func checkpointBase(dir string) string {
	return filepath.Join(dir, "policy")
}

// initialPolicy loads the policy at path. If path is a directory, the
// latest checkpoint in it is loaded.
func initialPolicy(path string) (policy.Deterministic, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("initialPolicy: %v", err)
	}

	if info.IsDir() {
		latest, _, err := checkpointer.Latest(checkpointBase(path),
			checkpointExt)
		if err != nil {
			return nil, fmt.Errorf("initialPolicy: %v", err)
		}
		if latest == "" {
			return nil, fmt.Errorf("initialPolicy: no checkpoints in %v", path)
		}
		path = latest
	}

	return policy.Load(path)
}

// save writes the trace, its chart, and the tracker data
func save(c config.Config, trace *experiment.Trace,
	evaluator *experiment.Evaluator, logger *slog.Logger) error {
	if c.TraceOut != "" {
		if err := trace.Save(c.TraceOut); err != nil {
			return fmt.Errorf("save: %v", err)
		}
		logger.Info("saved trace", "file", c.TraceOut)
	}

	if c.Chart != "" {
		series := plot.Series{Name: "average return", Values: trace.Values()}
		title := fmt.Sprintf("Policy Iteration on FrozenLake %v", c.Map)
		if err := plot.Save(c.Chart, title, series); err != nil {
			return fmt.Errorf("save: %v", err)
		}
		logger.Info("saved chart", "file", c.Chart)
	}

	if c.DataDir != "" {
		if err := evaluator.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
		logger.Info("saved episode data", "dir", c.DataDir)
	}
	return nil
}
