package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single (state, action, reward, next state, done)
// tuple generated by the agent-environment interaction.
//
// Discount is the discount applied to the value of NextState when
// bootstrapping. For one-step transitions this is γ, for n-step
// transitions it is γⁿ. Terminal transitions have a Discount of 0.
type Transition struct {
	State     *mat.VecDense
	Action    *mat.VecDense
	Reward    float64
	Discount  float64
	NextState *mat.VecDense
	Done      bool
}

// NewTransition builds the Transition generated by taking action in the
// state of step and arriving at nextStep.
func NewTransition(step TimeStep, action *mat.VecDense,
	nextStep TimeStep) Transition {
	discount := nextStep.Discount
	if nextStep.Last() {
		discount = 0.0
	}

	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    nextStep.Reward,
		Discount:  discount,
		NextState: nextStep.Observation,
		Done:      nextStep.Last(),
	}
}

// Equal returns whether two transitions hold the same data
func (t Transition) Equal(other Transition) bool {
	return t.Reward == other.Reward && t.Discount == other.Discount &&
		t.Done == other.Done && mat.Equal(t.State, other.State) &&
		mat.Equal(t.Action, other.Action) &&
		mat.Equal(t.NextState, other.NextState)
}

func (t Transition) String() string {
	str := "Transition | State: %v  |  Action: %v  |  Reward: %.2f  |  " +
		"Discount: %.2f  |  Next State: %v  |  Done: %v"

	return fmt.Sprintf(str, t.State.RawVector().Data,
		t.Action.RawVector().Data, t.Reward, t.Discount,
		t.NextState.RawVector().Data, t.Done)
}
