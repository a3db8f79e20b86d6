// Package frozenlake implements the FrozenLake grid world.
//
// The agent walks on a frozen lake from a start tile to a goal tile,
// avoiding holes. On a slippery lake the agent moves in the intended
// direction with probability 1/3 and in each of the two perpendicular
// directions with probability 1/3. Reaching the goal pays a reward of
// 1.0, every other transition pays 0. Holes and the goal are terminal.
//
// The transition table is built exactly as the OpenAI Gym FrozenLake
// environment builds it, so that policies computed here can be run on
// Gym's FrozenLake-v0 unchanged.
package frozenlake

import (
	"fmt"

	env "github.com/samuelfneumann/golearn-dp/environment"
	"github.com/samuelfneumann/golearn-dp/environment/tabular"
)

// Actions
const (
	Left int = iota
	Down
	Right
	Up
)

// NumActions is the number of actions available in each state
const NumActions int = 4

// FrozenLake is a FrozenLake grid world
type FrozenLake struct {
	*tabular.MDP
	desc     []string
	rows     int
	cols     int
	slippery bool
}

// New creates a FrozenLake with map desc. Episodes are cut off after
// cutoff steps if cutoff > 0.
func New(desc []string, slippery bool, cutoff int, discount float64,
	seed uint64) (*FrozenLake, error) {
	rows, cols, err := checkMap(desc)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	var starts []int
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if desc[r][c] == Start {
				starts = append(starts, toState(r, c, cols))
			}
		}
	}
	starter, err := env.NewUniformStarter(starts, rows*cols, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create starter: %v", err)
	}

	var ender env.Ender
	if cutoff > 0 {
		ender = env.NewStepLimit(cutoff)
	}

	mdp, err := tabular.New(Table(desc, slippery), starter, ender, discount,
		seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create MDP: %v", err)
	}

	return &FrozenLake{
		MDP:      mdp,
		desc:     desc,
		rows:     rows,
		cols:     cols,
		slippery: slippery,
	}, nil
}

// NewNamed creates a FrozenLake using one of the named maps in Maps,
// with Gym's episode cutoff for that map
func NewNamed(name string, slippery bool, discount float64,
	seed uint64) (*FrozenLake, error) {
	desc, ok := Maps[name]
	if !ok {
		return nil, fmt.Errorf("newNamed: no such map %q", name)
	}
	return New(desc, slippery, EpisodeCutoffs[name], discount, seed)
}

// Table builds the transition table of the map desc. The map is
// assumed to be valid.
func Table(desc []string, slippery bool) tabular.Table {
	rows, cols := len(desc), len(desc[0])
	table := make(tabular.Table, rows*cols)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s := toState(r, c, cols)
			table[s] = make([][]env.Transition, NumActions)

			for a := 0; a < NumActions; a++ {
				tile := desc[r][c]
				if tile == Goal || tile == Hole {
					table[s][a] = []env.Transition{
						{Probability: 1.0, Next: s, Reward: 0, Terminal: true},
					}
					continue
				}

				if !slippery {
					table[s][a] = []env.Transition{
						outcome(desc, r, c, a, 1.0),
					}
					continue
				}

				// Outcomes are kept separate even when two directions
				// lead to the same tile
				for _, b := range []int{(a + 3) % 4, a, (a + 1) % 4} {
					table[s][a] = append(table[s][a],
						outcome(desc, r, c, b, 1.0/3.0))
				}
			}
		}
	}
	return table
}

// outcome returns the transition from tile (r, c) when moving in
// direction a
func outcome(desc []string, r, c, a int, p float64) env.Transition {
	nr, nc := move(r, c, a, len(desc), len(desc[0]))
	tile := desc[nr][nc]

	reward := 0.0
	if tile == Goal {
		reward = 1.0
	}

	return env.Transition{
		Probability: p,
		Next:        toState(nr, nc, len(desc[0])),
		Reward:      reward,
		Terminal:    tile == Goal || tile == Hole,
	}
}

// move returns the tile reached by moving from (r, c) in direction a.
// Moving into the edge of the lake leaves the agent in place.
func move(r, c, a, rows, cols int) (int, int) {
	switch a {
	case Left:
		if c > 0 {
			c--
		}
	case Down:
		if r < rows-1 {
			r++
		}
	case Right:
		if c < cols-1 {
			c++
		}
	case Up:
		if r > 0 {
			r--
		}
	}
	return r, c
}

func toState(r, c, cols int) int {
	return r*cols + c
}

// checkMap ensures that desc is rectangular, uses only known tiles and
// has at least one start tile
func checkMap(desc []string) (rows, cols int, err error) {
	if len(desc) == 0 || len(desc[0]) == 0 {
		return 0, 0, fmt.Errorf("map must not be empty")
	}

	rows, cols = len(desc), len(desc[0])
	starts := 0
	for r, row := range desc {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("row %d has %d tiles, want %d", r,
				len(row), cols)
		}
		for c := 0; c < cols; c++ {
			switch row[c] {
			case Start:
				starts++
			case Frozen, Hole, Goal:
			default:
				return 0, 0, fmt.Errorf("unknown tile %q at (%d, %d)",
					row[c], r, c)
			}
		}
	}

	if starts == 0 {
		return 0, 0, fmt.Errorf("map has no start tile")
	}
	return rows, cols, nil
}

// Dims gets the rows and columns of the FrozenLake
func (f *FrozenLake) Dims() (r, c int) {
	return f.rows, f.cols
}

// Map returns the description of the lake
func (f *FrozenLake) Map() []string {
	return f.desc
}

// Slippery returns whether the lake is slippery
func (f *FrozenLake) Slippery() bool {
	return f.slippery
}

// Tile returns the tile at state s
func (f *FrozenLake) Tile(s int) byte {
	return f.desc[s/f.cols][s%f.cols]
}

// Coordinates returns the (row, column) of state s
func (f *FrozenLake) Coordinates(s int) (int, int) {
	return s / f.cols, s % f.cols
}

func (f *FrozenLake) String() string {
	str := "FrozenLake | Bounds: (%d, %d)  |  Slippery: %v  |  At: %d"
	return fmt.Sprintf(str, f.rows, f.cols, f.slippery,
		f.CurrentTimeStep().State)
}
