package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/gorl/environment"
	ts "github.com/samuelfneumann/gorl/timestep"
)

const (
	// FailAngle is the pole angle from vertical at which the pole is
	// considered to have fallen
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// FailPosition is the distance from the centre of the track at
	// which the cart is considered to have left the track
	FailPosition float64 = 2.4

	// StartBound bounds each feature of uniformly sampled starting
	// states
	StartBound float64 = 0.05
)

// Balance implements the classic control Cartpole Balance task. In this
// Task, the goal of the agent is to balance the pole on the cart in
// an upright position for as long as possible.
//
// The reward is +1 for every timestep, including the step on which
// the pole falls.
//
// Episodes end after a step limit, after the pole has fallen below
// the fail angle, or after the cart has left the track.
type Balance struct {
	env.Starter
	enders    env.Enders
	failAngle float64
}

// NewBalance creates and returns a new Balance task. An episodeSteps of
// 0 results in episodes only ending when the pole falls or the cart
// leaves the track.
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	limits := []r1.Interval{
		{Min: -FailPosition, Max: FailPosition},
		{Min: -failAngle, Max: failAngle},
	}
	intervalLimiter := env.NewIntervalLimit(limits, []int{0, 2})

	enders := env.Enders{intervalLimiter, env.NewStepLimit(episodeSteps)}
	return &Balance{s, enders, failAngle}
}

// NewUniformStarter returns a Starter which samples each state feature
// uniformly from [-StartBound, StartBound]
func NewUniformStarter(seed uint64) env.UniformStarter {
	bounds := make([]r1.Interval, ObservationDims)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: -StartBound, Max: StartBound}
	}
	return env.NewUniformStarter(bounds, seed)
}

// End checks if a TimeStep is the last in an episode. If so, it adjusts
// the TimeStep's StepType to timestep.Last and returns true. Otherwise,
// the function does not adjust the TimeStep and returns false.
func (b *Balance) End(t *ts.TimeStep) bool {
	return b.enders.End(t)
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState.
func (b *Balance) GetReward(_, _, _ mat.Vector) float64 {
	return 1.0
}

// AtGoal returns whether the pole is balanced within the fail angle
func (b *Balance) AtGoal(state mat.Vector) bool {
	return math.Abs(state.AtVec(2)) <= b.failAngle
}

// Min returns the minimum possible reward that can be received in the
// environment
func (b *Balance) Min() float64 {
	return 1.0
}

// Max returns the maximum possible reward that can be received in the
// environment
func (b *Balance) Max() float64 {
	return 1.0
}
