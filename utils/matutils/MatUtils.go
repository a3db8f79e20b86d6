// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// MaxVec finds and returns the index of the maximum value in a vector.
// If multiple equal max values exist, only the first one is returned.
func MaxVec(values mat.Vector) int {
	max, idx := values.AtVec(0), 0
	length := values.Len()

	for i := 1; i < length; i++ {
		if values.AtVec(i) > max {
			max = values.AtVec(i)
			idx = i
		}
	}
	return idx
}

// L1Distance returns the sum of absolute element-wise differences of
// two vectors of equal length
func L1Distance(a, b mat.Vector) float64 {
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("l1Distance: vector lengths %d and %d differ",
			a.Len(), b.Len()))
	}

	x := make([]float64, a.Len())
	y := make([]float64, b.Len())
	for i := range x {
		x[i] = a.AtVec(i)
		y[i] = b.AtVec(i)
	}
	return floats.Distance(x, y, 1)
}
