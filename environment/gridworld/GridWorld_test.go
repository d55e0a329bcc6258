package gridworld

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReachGoal(t *testing.T) {
	c := DefaultConfig()
	c.Start = [2]float64{70, 70}
	c.DenseGoals = [][2]float64{{72, 72}}

	g, first, err := New(c, 0.99)
	require.NoError(t, err)
	assert.True(t, first.First())

	move := mat.NewVecDense(2, []float64{1, 1})
	rewards := []float64{}
	var done bool
	for !done {
		step, d, err := g.Step(move)
		require.NoError(t, err)
		rewards = append(rewards, step.Reward)
		done = d
	}

	// (71, 71) (72, 72) (73, 73) (74, 74) (75, 75)
	require.Len(t, rewards, 5)
	assert.Equal(t, c.StepPenalty, rewards[0])
	assert.Equal(t, c.DenseReward, rewards[1])
	assert.Equal(t, c.StepPenalty, rewards[2])
	assert.Equal(t, c.GoalReward, rewards[4])

	// Dense goals are restored on reset
	_, err = g.Reset()
	require.NoError(t, err)
	assert.Len(t, g.denseGoals, 1)
}

func TestClipAndStepLimit(t *testing.T) {
	c := DefaultConfig()
	c.Start = [2]float64{0.5, 0.5}
	c.MaxEpisodeLen = 3

	g, _, err := New(c, 0.99)
	require.NoError(t, err)

	move := mat.NewVecDense(2, []float64{-1, -1})
	for i := 0; i < 3; i++ {
		step, done, err := g.Step(move)
		require.NoError(t, err)
		assert.Equal(t, 0.0, step.Observation.AtVec(0))
		assert.Equal(t, 0.0, step.Observation.AtVec(1))
		assert.Equal(t, i == 2, done)
	}

	_, _, err = g.Step(move)
	assert.Error(t, err)
}

func TestWallsBlockMovement(t *testing.T) {
	c := DefaultConfig()
	c.NumRooms = 1
	c.Start = [2]float64{10, 47.5}

	g, _, err := New(c, 0.99)
	require.NoError(t, err)

	// The horizontal wall occupies y in [49, 51] for x in [0, 50]
	step, _, err := g.Step(mat.NewVecDense(2, []float64{0, 1}))
	require.NoError(t, err)
	assert.Equal(t, 48.5, step.Observation.AtVec(1))

	step, _, err = g.Step(mat.NewVecDense(2, []float64{0, 1}))
	require.NoError(t, err)
	assert.Equal(t, 48.5, step.Observation.AtVec(1))

	c.Start = [2]float64{50, 50}
	_, _, err = New(c, 0.99)
	assert.Error(t, err)
}

func TestIllegalActions(t *testing.T) {
	g, _, err := New(DefaultConfig(), 0.99)
	require.NoError(t, err)
	_, _, err = g.Step(mat.NewVecDense(2, []float64{2, 0}))
	assert.Error(t, err)
	_, _, err = g.Step(mat.NewVecDense(1, []float64{0}))
	assert.Error(t, err)

	d, _, err := NewDiscrete(DefaultConfig(), 0.99)
	require.NoError(t, err)
	_, _, err = d.Step(mat.NewVecDense(1, []float64{8}))
	assert.Error(t, err)
	_, _, err = d.Step(mat.NewVecDense(1, []float64{0.5}))
	assert.Error(t, err)
}

func TestDiscreteDirections(t *testing.T) {
	d, _, err := NewDiscrete(DefaultConfig(), 0.99)
	require.NoError(t, err)

	n, err := d.ActionSpec().NumActions()
	require.NoError(t, err)
	assert.Equal(t, NumDirections, n)

	// Direction 1 moves diagonally up and to the right
	step, _, err := d.Step(mat.NewVecDense(1, []float64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 25+math.Sqrt2/2, step.Observation.AtVec(0), 1e-12)
	assert.InDelta(t, 25+math.Sqrt2/2, step.Observation.AtVec(1), 1e-12)

	// Direction 4 moves left
	step, _, err = d.Step(mat.NewVecDense(1, []float64{4}))
	require.NoError(t, err)
	assert.InDelta(t, 24+math.Sqrt2/2, step.Observation.AtVec(0), 1e-12)
	assert.InDelta(t, 25+math.Sqrt2/2, step.Observation.AtVec(1), 1e-12)
}
