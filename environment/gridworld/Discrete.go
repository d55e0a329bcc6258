package gridworld

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/gorl/environment"
	ts "github.com/samuelfneumann/gorl/timestep"
	"github.com/samuelfneumann/gorl/utils/floatutils"
)

// NumDirections is the number of actions in the Discrete GridWorld
const NumDirections int = 8

// Discrete implements the GridWorld with discrete actions. Action k in
// {0, 1, ..., 7} moves the agent ActionLimit units in the direction
// k·π/4 measured counter-clockwise from the positive x-axis.
//
// Discrete implements the environment.Environment interface
type Discrete struct {
	*GridWorld
}

// NewDiscrete constructs a new GridWorld with discrete actions
func NewDiscrete(c Config, discount float64) (*Discrete, ts.TimeStep,
	error) {
	g, step, err := New(c, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newDiscrete: %w", err)
	}
	return &Discrete{g}, step, nil
}

// ActionSpec returns the action specification of the environment
func (d *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{0})
	upperBound := mat.NewVecDense(1, []float64{float64(NumDirections - 1)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// Step takes one step in the direction given by action a
func (d *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != 1 {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions should be "+
			"1-dimensional \n\thave(%v)", a.Len())
	}

	direction := a.AtVec(0)
	k := int(direction)
	if float64(k) != direction || k < 0 || k >= NumDirections {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ [0, %v)", direction, NumDirections)
	}

	angle := float64(k) * math.Pi / 4
	limit := d.config.ActionLimit
	dx := floatutils.Clip(limit*math.Cos(angle), -limit, limit)
	dy := floatutils.Clip(limit*math.Sin(angle), -limit, limit)

	return d.GridWorld.Step(mat.NewVecDense(ActionDims, []float64{dx, dy}))
}
