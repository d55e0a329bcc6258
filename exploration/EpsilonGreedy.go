// Package exploration implements exploration strategies: ε-greedy
// action selection for discrete action values, and uniform or noise
// driven action selection used before an agent starts learning.
package exploration

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gorl/schedule"
	"github.com/samuelfneumann/gorl/utils/floatutils"
)

// EpsilonGreedy implements ε-greedy action selection over discrete
// action values, where ε is annealed by a Schedule. With probability ε
// a uniformly random action is selected. Otherwise, the action with
// the largest value is selected, with ties broken uniformly at random.
type EpsilonGreedy struct {
	schedule schedule.Schedule
	rng      *rand.Rand
}

// NewEpsilonGreedy returns a new EpsilonGreedy
func NewEpsilonGreedy(s schedule.Schedule, seed uint64) *EpsilonGreedy {
	if s == nil {
		panic("newEpsilonGreedy: schedule cannot be nil")
	}
	return &EpsilonGreedy{
		schedule: s,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Epsilon returns ε at a given step
func (e *EpsilonGreedy) Epsilon(step int) float64 {
	return e.schedule.Value(step)
}

// Select selects an action given the action values at a given step
func (e *EpsilonGreedy) Select(values mat.Vector, step int) int {
	return e.SelectWithEpsilon(values, e.Epsilon(step))
}

// SelectWithEpsilon selects an action given the action values using a
// fixed ε
func (e *EpsilonGreedy) SelectWithEpsilon(values mat.Vector,
	epsilon float64) int {
	if values.Len() == 0 {
		panic("selectWithEpsilon: no action values")
	}

	if e.rng.Float64() < epsilon {
		return e.rng.Intn(values.Len())
	}

	v := make([]float64, values.Len())
	for i := range v {
		v[i] = values.AtVec(i)
	}
	_, indices := floatutils.MaxSlice(v)
	return indices[e.rng.Intn(len(indices))]
}
