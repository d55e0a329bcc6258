package environment

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gorl/timestep"
)

// FunctionEnder ends an episode whenever a function of a vector
// (usually the underlying environment state) returns true.
type FunctionEnder struct {
	end func(*mat.VecDense) bool
}

// NewFunctionEnder returns a new FunctionEnder which ends episodes
// when f returns true.
func NewFunctionEnder(f func(*mat.VecDense) bool) *FunctionEnder {
	return &FunctionEnder{f}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended, End() will modify the timestep so that its StepType
// field is timestep.Last.
func (f *FunctionEnder) End(t *ts.TimeStep) bool {
	if f.end(t.Observation) {
		t.StepType = ts.Last
		return true
	}
	return false
}
