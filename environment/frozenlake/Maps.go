package frozenlake

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Tiles of a FrozenLake map
const (
	Start  byte = 'S'
	Frozen byte = 'F'
	Hole   byte = 'H'
	Goal   byte = 'G'
)

// Named maps, identical to those of the OpenAI Gym FrozenLake
// environments
var Maps = map[string][]string{
	"4x4": {
		"SFFF",
		"FHFH",
		"FFFH",
		"HFFG",
	},
	"8x8": {
		"SFFFFFFF",
		"FFFFFFFF",
		"FFFHFFFF",
		"FFFFFHFF",
		"FFFHFFFF",
		"FHHFFFHF",
		"FHFFHFHF",
		"FFFHFFFG",
	},
}

// EpisodeCutoffs are the episode step limits used by Gym for each of
// the named maps
var EpisodeCutoffs = map[string]int{
	"4x4": 100,
	"8x8": 200,
}

// RandomMap generates a random size x size map in which each tile is
// frozen with probability p. The start is always the top left tile and
// the goal the bottom right tile. Maps are generated until one has a
// path from start to goal.
func RandomMap(size int, p float64, seed uint64) ([]string, error) {
	if size < 2 {
		return nil, fmt.Errorf("randomMap: size %d must be at least 2", size)
	}
	if p <= 0 || p > 1 {
		return nil, fmt.Errorf("randomMap: frozen probability %v not in "+
			"(0, 1]", p)
	}

	rng := rand.New(rand.NewSource(seed))
	board := make([][]byte, size)
	for {
		for r := range board {
			board[r] = make([]byte, size)
			for c := range board[r] {
				if rng.Float64() < p {
					board[r][c] = Frozen
				} else {
					board[r][c] = Hole
				}
			}
		}
		board[0][0] = Start
		board[size-1][size-1] = Goal

		if reachable(board) {
			break
		}
	}

	desc := make([]string, size)
	for r := range board {
		desc[r] = string(board[r])
	}
	return desc, nil
}

// reachable returns whether the goal can be reached from the top left
// tile without passing through a hole
func reachable(board [][]byte) bool {
	rows, cols := len(board), len(board[0])
	seen := make([]bool, rows*cols)
	frontier := []int{0}
	seen[0] = true

	for len(frontier) > 0 {
		current := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		r, c := current/cols, current%cols

		for _, d := range [][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
			nr, nc := r+d[0], c+d[1]
			if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
				continue
			}
			next := nr*cols + nc
			if seen[next] || board[nr][nc] == Hole {
				continue
			}
			if board[nr][nc] == Goal {
				return true
			}
			seen[next] = true
			frontier = append(frontier, next)
		}
	}
	return false
}
