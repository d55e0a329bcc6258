package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly within a set of
// per-feature bounds
type UniformStarter struct {
	features int
	seed     uint64
	rand     *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter which samples feature
// i of starting states uniformly from bounds[i]
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	source := rand.NewSource(seed)
	rand := distmv.NewUniform(bounds, source)

	return UniformStarter{len(bounds), seed, rand}
}

// Start returns a starting state vector
func (u UniformStarter) Start() *mat.VecDense {
	return mat.NewVecDense(u.features, u.rand.Rand(nil))
}

// FixedStarter always starts episodes from the same state
type FixedStarter struct {
	state *mat.VecDense
}

// NewFixedStarter returns a new FixedStarter which starts each episode
// in state
func NewFixedStarter(state []float64) FixedStarter {
	s := make([]float64, len(state))
	copy(s, state)
	return FixedStarter{mat.NewVecDense(len(s), s)}
}

// Start returns a copy of the fixed starting state
func (f FixedStarter) Start() *mat.VecDense {
	return mat.VecDenseCopyOf(f.state)
}
