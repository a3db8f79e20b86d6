// Command frozenlake solves the FrozenLake grid world with Policy
// Iteration, evaluates the resulting policy by Monte-Carlo rollouts,
// and plots the evaluation trace.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/golearn-dp/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flags holds the command line values which override the configuration
type flags struct {
	config     string
	mapName    string
	slippery   bool
	gamma      float64
	seed       uint64
	episodes   int
	evaluation string
	backend    string
	initPolicy string
	checkpoint string
	traceOut   string
	chart      string
	dataDir    string
	logLevel   string
	progress   bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "frozenlake",
		Short: "Solve FrozenLake with Policy Iteration",
		Long: "frozenlake computes an optimal policy for the FrozenLake grid " +
			"world with Policy Iteration, recording the average return of " +
			"the policy after each improvement step.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			return run(c, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "YAML or JSON configuration file")
	fs.StringVar(&f.mapName, "map", def.Map, "map: 4x4, 8x8 or random")
	fs.BoolVar(&f.slippery, "slippery", def.Slippery, "slippery ice")
	fs.Float64Var(&f.gamma, "gamma", def.Discount, "discount factor in (0, 1]")
	fs.Uint64Var(&f.seed, "seed", def.Seed, "random seed")
	fs.IntVar(&f.episodes, "episodes", def.EvalEpisodes,
		"episodes per evaluation")
	fs.StringVar(&f.evaluation, "evaluation", def.Evaluation,
		"policy evaluation method: iterative or linear")
	fs.StringVar(&f.backend, "backend", def.Backend,
		"episode simulator: native or gym")
	fs.StringVar(&f.initPolicy, "init-policy", def.InitPolicy,
		"policy file or checkpoint directory to start from")
	fs.StringVar(&f.checkpoint, "checkpoint-dir", def.CheckpointDir,
		"directory to checkpoint improved policies to")
	fs.StringVar(&f.traceOut, "trace-out", def.TraceOut,
		"file to save the evaluation trace to")
	fs.StringVar(&f.chart, "chart", def.Chart,
		"chart of the evaluation trace, .html or .png")
	fs.StringVar(&f.dataDir, "data-dir", def.DataDir,
		"directory to save per-episode returns and lengths to")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel,
		"log level: debug, info, warn or error")
	fs.BoolVar(&f.progress, "progress", def.Progress,
		"display a progress bar during evaluations")
	fs.BoolVar(&f.noColor, "no-color", def.NoColor, "disable colors")

	return cmd
}

// resolve loads the configuration file, if any, and applies the flags
// set on the command line
func (f *flags) resolve(cmd *cobra.Command) (config.Config, error) {
	c := config.Default()
	if f.config != "" {
		var err error
		if c, err = config.Load(f.config); err != nil {
			return c, err
		}
	}

	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("map", func() { c.Map = f.mapName })
	set("slippery", func() { c.Slippery = f.slippery })
	set("gamma", func() { c.Discount = f.gamma })
	set("seed", func() { c.Seed = f.seed })
	set("episodes", func() { c.EvalEpisodes = f.episodes })
	set("evaluation", func() { c.Evaluation = f.evaluation })
	set("backend", func() { c.Backend = f.backend })
	set("init-policy", func() { c.InitPolicy = f.initPolicy })
	set("checkpoint-dir", func() { c.CheckpointDir = f.checkpoint })
	set("trace-out", func() { c.TraceOut = f.traceOut })
	set("chart", func() { c.Chart = f.chart })
	set("data-dir", func() { c.DataDir = f.dataDir })
	set("log-level", func() { c.LogLevel = f.logLevel })
	set("progress", func() { c.Progress = f.progress })
	set("no-color", func() { c.NoColor = f.noColor })

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("resolve: %w", err)
	}
	return c, nil
}
