package exploration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/schedule"
)

func discreteSpec(n int) env.Spec {
	return env.NewSpec(mat.NewVecDense(1, nil), env.Action,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(n - 1)}), env.Discrete)
}

func continuousSpec() env.Spec {
	return env.NewSpec(mat.NewVecDense(2, nil), env.Action,
		mat.NewVecDense(2, []float64{-1, -1}),
		mat.NewVecDense(2, []float64{1, 1}), env.Continuous)
}

func TestEpsilonGreedy(t *testing.T) {
	s, err := schedule.NewLinear(1.0, 0.0, 100)
	require.NoError(t, err)
	e := NewEpsilonGreedy(s, 1)

	assert.Equal(t, 1.0, e.Epsilon(0))
	assert.Equal(t, 0.0, e.Epsilon(100))

	values := mat.NewVecDense(3, []float64{0, 2, 1})
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, e.Select(values, 100))
	}

	counts := make([]int, 3)
	for i := 0; i < 3000; i++ {
		counts[e.Select(values, 0)]++
	}
	for _, c := range counts {
		assert.InDelta(t, 1000, c, 150)
	}

	// Ties are broken randomly
	tied := mat.NewVecDense(3, []float64{1, 1, 0})
	counts = make([]int, 3)
	for i := 0; i < 1000; i++ {
		counts[e.SelectWithEpsilon(tied, 0)]++
	}
	assert.Zero(t, counts[2])
	assert.Greater(t, counts[0], 0)
	assert.Greater(t, counts[1], 0)
}

func TestUniform(t *testing.T) {
	u, err := NewUniform(discreteSpec(4), 1)
	require.NoError(t, err)
	seen := map[float64]bool{}
	for i := 0; i < 200; i++ {
		seen[u.Action().AtVec(0)] = true
	}
	assert.Equal(t, map[float64]bool{0: true, 1: true, 2: true, 3: true}, seen)

	u, err = NewUniform(continuousSpec(), 1)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		a := u.Action()
		require.Equal(t, 2, a.Len())
		assert.LessOrEqual(t, math.Abs(a.AtVec(0)), 1.0)
		assert.LessOrEqual(t, math.Abs(a.AtVec(1)), 1.0)
	}
}

func TestOrnsteinUhlenbeck(t *testing.T) {
	o, err := NewOrnsteinUhlenbeck(1, 0.15, 0, 0.2, 1e-2, 1)
	require.NoError(t, err)

	// Consecutive samples are strongly correlated
	samples := make([]float64, 5000)
	for i := range samples {
		samples[i] = o.Sample().AtVec(0)
	}
	corr := stat.Correlation(samples[1:], samples[:len(samples)-1], nil)
	assert.Greater(t, corr, 0.9)

	o.Reset()
	assert.Equal(t, 0.0, o.state.AtVec(0))

	_, err = NewOrnsteinUhlenbeck(1, 0.15, 0, 0.2, 0, 1)
	assert.Error(t, err)
}

func TestNoisyStaysInBounds(t *testing.T) {
	p, err := Config{Type: GaussianType, Sigma: 5}.Create(continuousSpec(), 1)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		a := p.Action()
		assert.LessOrEqual(t, math.Abs(a.AtVec(0)), 1.0)
		assert.LessOrEqual(t, math.Abs(a.AtVec(1)), 1.0)
	}

	p, err = Config{Type: OrnsteinUhlenbeckType, Sigma: 0.3, Theta: 0.15}.
		Create(continuousSpec(), 1)
	require.NoError(t, err)
	p.Reset()
	assert.Equal(t, 2, p.Action().Len())

	_, err = Config{Type: OrnsteinUhlenbeckType}.Create(discreteSpec(2), 1)
	assert.Error(t, err)
	_, err = Config{Type: "polyrl"}.Create(continuousSpec(), 1)
	assert.Error(t, err)
}

func TestCreateNoise(t *testing.T) {
	n, err := Config{Type: GaussianType, Sigma: 0.1}.CreateNoise(3, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n.Sample().Len())

	n, err = Config{Type: OrnsteinUhlenbeckType, Sigma: 0.2, Theta: 0.15}.
		CreateNoise(2, 1)
	require.NoError(t, err)
	_, ok := n.(*OrnsteinUhlenbeck)
	assert.True(t, ok)

	_, err = Config{Type: UniformType}.CreateNoise(2, 1)
	assert.Error(t, err)
	_, err = Config{Type: GaussianType, Sigma: -1}.CreateNoise(2, 1)
	assert.Error(t, err)
}
