// Package environment outlines the interfaces and structs needed to
// implement concrete environments, which the training loop interacts
// with through the Environment interface.
package environment

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gorl/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode should end
type Ender interface {
	// End checks whether the TimeStep t is the last in an episode. If
	// so, End sets the StepType of t to timestep.Last and returns true.
	End(t *ts.TimeStep) bool
}

// Task implements the reward scheme, starting state distribution, and
// episode termination conditions of a simulated environment
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking action in state and
	// transitioning to nextState
	GetReward(state, action, nextState mat.Vector) float64

	// AtGoal returns whether a state is a goal state
	AtGoal(state mat.Vector) bool

	// Min and Max return the bounds on rewards of the task
	Min() float64
	Max() float64
}

// Environment implements an environment which an agent interacts with.
// Environments which fail to step, for example because an external
// simulator process has died, report an error which aborts training.
type Environment interface {
	// Reset resets the environment to a starting state and returns
	// the first TimeStep of the episode
	Reset() (ts.TimeStep, error)

	// Step takes one environmental step given an action and returns
	// the next TimeStep and whether the episode has ended
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec
}
