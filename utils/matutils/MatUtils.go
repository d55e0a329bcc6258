// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MaxVec finds and returns the index of the maximum value in a vector.
// If multiple equal max values exist, only the first one is returned.
func MaxVec(values mat.Vector) int {
	max, idx := values.AtVec(0), 0

	for i := 1; i < values.Len(); i++ {
		if values.AtVec(i) > max {
			max = values.AtVec(i)
			idx = i
		}
	}
	return idx
}

// VecClip performs an element-wise clipping of a vector's values such
// that each value is between the corresponding values of min and max
func VecClip(a *mat.VecDense, min, max mat.Vector) {
	if a.Len() != min.Len() || a.Len() != max.Len() {
		panic(fmt.Sprintf("vecClip: bounds must match vector length "+
			"\n\twant(%v) \n\thave(%v, %v)", a.Len(), min.Len(), max.Len()))
	}

	for i := 0; i < a.Len(); i++ {
		value := a.AtVec(i)

		if value < min.AtVec(i) {
			a.SetVec(i, min.AtVec(i))
		} else if value > max.AtVec(i) {
			a.SetVec(i, max.AtVec(i))
		}
	}
}
