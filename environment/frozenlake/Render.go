package frozenlake

import (
	"fmt"
	"strings"

	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/golearn-dp/agent/policy"
)

var arrows = [NumActions]string{"←", "↓", "→", "↑"}

// FormatPolicy formats a policy as a grid of arrows. Holes and the goal
// are printed as their tiles. If colors is true, ANSI colors are used.
func (f *FrozenLake) FormatPolicy(p policy.Deterministic, colors bool) string {
	au := aurora.NewAurora(colors)

	var b strings.Builder
	for r := 0; r < f.rows; r++ {
		for c := 0; c < f.cols; c++ {
			s := toState(r, c, f.cols)
			switch tile := f.desc[r][c]; tile {
			case Hole:
				b.WriteString(au.Red(string(tile)).String())
			case Goal:
				b.WriteString(au.Green(string(tile)).String())
			default:
				b.WriteString(au.Cyan(arrows[p[s]]).String())
			}
			if c < f.cols-1 {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatValues formats a value function as a grid
func (f *FrozenLake) FormatValues(v mat.Vector, colors bool) string {
	au := aurora.NewAurora(colors)

	var b strings.Builder
	for r := 0; r < f.rows; r++ {
		for c := 0; c < f.cols; c++ {
			value := fmt.Sprintf("%6.3f", v.AtVec(toState(r, c, f.cols)))
			if f.desc[r][c] == Hole {
				b.WriteString(au.Red(value).String())
			} else {
				b.WriteString(au.Blue(value).String())
			}
			b.WriteString(au.White(" |").String())
		}
		b.WriteString("\n")
	}
	return b.String()
}
