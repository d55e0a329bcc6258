package timestep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewTransition(t *testing.T) {
	obs := mat.NewVecDense(2, []float64{0, 1})
	nextObs := mat.NewVecDense(2, []float64{1, 2})
	action := mat.NewVecDense(1, []float64{1})

	step := New(First, 0, 0.99, obs, 0)
	next := New(Mid, 1.5, 0.99, nextObs, 1)

	tr := NewTransition(step, action, next)
	assert.Equal(t, 1.5, tr.Reward)
	assert.Equal(t, 0.99, tr.Discount)
	assert.False(t, tr.Done)
	assert.True(t, mat.Equal(obs, tr.State))
	assert.True(t, mat.Equal(nextObs, tr.NextState))

	last := New(Last, -1, 0.99, nextObs, 1)
	tr = NewTransition(step, action, last)
	assert.True(t, tr.Done)
	assert.Equal(t, 0.0, tr.Discount)
	assert.True(t, tr.Equal(tr))
}
