package cartpole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCartpoleEpisode(t *testing.T) {
	task := NewBalance(NewUniformStarter(1), 200, FailAngle)
	c, first, err := New(task, 0.99)
	require.NoError(t, err)
	require.True(t, first.First())
	assert.Equal(t, 4, c.ObservationSpec().Len())

	n, err := c.ActionSpec().NumActions()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Always pushing right makes the pole fall well before the step
	// limit
	right := mat.NewVecDense(1, []float64{1})
	steps := 0
	for {
		step, done, err := c.Step(right)
		require.NoError(t, err)
		assert.Equal(t, 1.0, step.Reward)
		steps++
		if done {
			assert.True(t, step.Last())
			break
		}
	}
	assert.Less(t, steps, 200)

	_, _, err = c.Step(right)
	assert.Error(t, err)

	step, err := c.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0, step.Number)
}

func TestCartpoleStepLimit(t *testing.T) {
	task := NewBalance(NewUniformStarter(1), 5, FailAngle)
	c, _, err := New(task, 0.99)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		action := mat.NewVecDense(1, []float64{float64(i % 2)})
		step, done, err := c.Step(action)
		require.NoError(t, err)
		assert.Equal(t, i == 4, done)
		assert.Equal(t, i+1, step.Number)
	}
}

func TestCartpoleIllegalAction(t *testing.T) {
	task := NewBalance(NewUniformStarter(1), 5, FailAngle)
	c, _, err := New(task, 0.99)
	require.NoError(t, err)

	_, _, err = c.Step(mat.NewVecDense(1, []float64{2}))
	assert.Error(t, err)
}
