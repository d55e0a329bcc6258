package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	ts "github.com/samuelfneumann/gorl/timestep"
)

func TestEnders(t *testing.T) {
	obs := mat.NewVecDense(2, []float64{0.5, 3})

	step := ts.New(ts.Mid, 0, 1, obs, 9)
	limit := NewStepLimit(10)
	assert.False(t, limit.End(&step))
	assert.True(t, step.Mid())

	step.Number = 10
	assert.True(t, limit.End(&step))
	assert.True(t, step.Last())

	step = ts.New(ts.Mid, 0, 1, obs, 1)
	interval := NewIntervalLimit([]r1.Interval{{Min: -1, Max: 1}}, []int{1})
	assert.True(t, interval.End(&step))
	assert.True(t, step.Last())

	step = ts.New(ts.Mid, 0, 1, obs, 1)
	enders := Enders{
		NewStepLimit(100),
		NewFunctionEnder(func(v *mat.VecDense) bool { return v.AtVec(0) > 1 }),
	}
	assert.False(t, enders.End(&step))
	obs.SetVec(0, 2)
	assert.True(t, enders.End(&step))
	assert.True(t, step.Last())
}

func TestStarters(t *testing.T) {
	bounds := []r1.Interval{{Min: -0.05, Max: 0.05}, {Min: 1, Max: 2}}
	starter := NewUniformStarter(bounds, 1)
	for i := 0; i < 100; i++ {
		s := starter.Start()
		require.Equal(t, 2, s.Len())
		for j, b := range bounds {
			assert.GreaterOrEqual(t, s.AtVec(j), b.Min)
			assert.LessOrEqual(t, s.AtVec(j), b.Max)
		}
	}

	fixed := NewFixedStarter([]float64{25, 25})
	s := fixed.Start()
	s.SetVec(0, 0)
	assert.Equal(t, 25.0, fixed.Start().AtVec(0))
}

func TestSpecNumActions(t *testing.T) {
	s := NewSpec(mat.NewVecDense(1, nil), Action, mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{7}), Discrete)
	n, err := s.NumActions()
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	s.Cardinality = Continuous
	_, err = s.NumActions()
	assert.Error(t, err)

	assert.Panics(t, func() {
		NewSpec(mat.NewVecDense(2, nil), Observation,
			mat.NewVecDense(1, nil), mat.NewVecDense(2, nil), Continuous)
	})
}
