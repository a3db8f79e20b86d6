// Package config provides the configuration of a Policy Iteration run
// on FrozenLake. Configurations can be read from YAML (or JSON) files
// and are validated with struct tags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samuelfneumann/golearn-dp/agent/dp"
	"github.com/samuelfneumann/golearn-dp/environment/frozenlake"
	"gopkg.in/yaml.v3"
)

// Simulator backends
const (
	Native string = "native"
	Gym    string = "gym"
)

// Random names the randomly generated map
const Random string = "random"

var validate = validator.New()

// Config describes the lake, the solver, and the outputs of a run
type Config struct {
	// Lake
	Map        string  `yaml:"map" validate:"required,oneof=4x4 8x8 random"`
	RandomSize int     `yaml:"random_size" validate:"gte=2,lte=64"`
	FrozenProb float64 `yaml:"frozen_prob" validate:"gt=0,lte=1"`
	Slippery   bool    `yaml:"slippery"`
	Cutoff     int     `yaml:"cutoff" validate:"gte=0"`

	// Solver
	Discount         float64 `yaml:"discount" validate:"gt=0,lte=1"`
	Tolerance        float64 `yaml:"tolerance" validate:"gte=0"`
	MaxSweeps        int     `yaml:"max_sweeps" validate:"gte=0"`
	MaxIterations    int     `yaml:"max_iterations" validate:"gt=0"`
	EvalEpisodes     int     `yaml:"eval_episodes" validate:"gt=0"`
	FinalEvaluations int     `yaml:"final_evaluations" validate:"gte=0"`
	Evaluation       string  `yaml:"evaluation" validate:"oneof=iterative linear"`
	Seed             uint64  `yaml:"seed"`
	Backend          string  `yaml:"backend" validate:"oneof=native gym"`

	// InitPolicy is a saved policy, or a checkpoint directory whose
	// latest checkpoint is used, to start policy iteration from
	InitPolicy      string `yaml:"init_policy"`
	CheckpointDir   string `yaml:"checkpoint_dir"`
	CheckpointEvery int    `yaml:"checkpoint_every" validate:"gte=1"`

	// Output
	TraceOut string `yaml:"trace_out"`
	Chart    string `yaml:"chart" validate:"omitempty,endswith=.html|endswith=.png"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
	Progress bool   `yaml:"progress"`
	NoColor  bool   `yaml:"no_color"`
}

// Default returns the default configuration: the slippery 4x4 lake,
// undiscounted, with five evaluations recorded after convergence and
// the trace chart written to trace.html
func Default() Config {
	return Config{
		Map:              "4x4",
		RandomSize:       8,
		FrozenProb:       0.8,
		Slippery:         true,
		Discount:         1.0,
		Tolerance:        dp.DefaultTolerance,
		MaxSweeps:        dp.DefaultMaxSweeps,
		MaxIterations:    dp.DefaultMaxIterations,
		EvalEpisodes:     dp.DefaultEvalEpisodes,
		FinalEvaluations: 5,
		Evaluation:       dp.Iterative,
		Backend:          Native,
		CheckpointEvery:  1,
		Chart:            "trace.html",
		LogLevel:         "info",
	}
}

// Load reads the configuration at path. Fields absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	c := Default()

	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("load: could not open config: %v", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("load: could not parse %v: %v", path, err)
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("load: %w", err)
	}
	return c, nil
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Gym only provides its default lake
	if c.Backend == Gym {
		if c.Map != "4x4" || !c.Slippery {
			return fmt.Errorf("invalid config: backend %q requires the "+
				"slippery 4x4 map", Gym)
		}
		if c.Cutoff != 0 && c.Cutoff != frozenlake.EpisodeCutoffs["4x4"] {
			return fmt.Errorf("invalid config: backend %q uses a cutoff "+
				"of %d", Gym, frozenlake.EpisodeCutoffs["4x4"])
		}
	}

	return c.Solver().Validate()
}

// Solver returns the Policy Iteration configuration
func (c Config) Solver() dp.Config {
	return dp.Config{
		Discount:      c.Discount,
		Tolerance:     c.Tolerance,
		MaxSweeps:     c.MaxSweeps,
		MaxIterations: c.MaxIterations,
		EvalEpisodes:  c.EvalEpisodes,
		Evaluation:    c.Evaluation,
		Seed:          c.Seed,
	}
}

// EpisodeCutoff returns the step limit of episodes. Unless set, named
// maps use Gym's limit and random maps 25 steps per row.
func (c Config) EpisodeCutoff() int {
	if c.Cutoff > 0 {
		return c.Cutoff
	}
	if cutoff, ok := frozenlake.EpisodeCutoffs[c.Map]; ok {
		return cutoff
	}
	return 25 * c.RandomSize
}

// Lake creates the FrozenLake described by the configuration
func (c Config) Lake() (*frozenlake.FrozenLake, error) {
	desc, ok := frozenlake.Maps[c.Map]
	if c.Map == Random {
		var err error
		desc, err = frozenlake.RandomMap(c.RandomSize, c.FrozenProb, c.Seed)
		if err != nil {
			return nil, fmt.Errorf("lake: %v", err)
		}
	} else if !ok {
		return nil, fmt.Errorf("lake: no such map %q", c.Map)
	}

	return frozenlake.New(desc, c.Slippery, c.EpisodeCutoff(), c.Discount,
		c.Seed)
}

// Level returns the log level
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
