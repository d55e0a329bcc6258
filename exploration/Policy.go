package exploration

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"

	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/utils/matutils"
)

// Policy selects actions without consulting an agent, for example to
// fill a replay buffer before learning starts
type Policy interface {
	// Action returns the next action
	Action() *mat.VecDense

	// Reset is called at the start of each episode
	Reset()
}

// Uniform selects actions uniformly at random within the bounds of an
// action Spec. Discrete actions are integers in
// [LowerBound, UpperBound].
type Uniform struct {
	discrete bool
	low      int
	n        int
	rng      *rand.Rand
	box      *distmv.Uniform
}

// NewUniform returns a new Uniform policy over the actions described
// by spec
func NewUniform(spec env.Spec, seed uint64) (*Uniform, error) {
	source := rand.NewSource(seed)

	if spec.Cardinality == env.Discrete {
		n, err := spec.NumActions()
		if err != nil {
			return nil, fmt.Errorf("newUniform: %w", err)
		}
		return &Uniform{
			discrete: true,
			low:      int(spec.LowerBound.AtVec(0)),
			n:        n,
			rng:      rand.New(source),
		}, nil
	}

	bounds := make([]r1.Interval, spec.Len())
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: spec.LowerBound.AtVec(i),
			Max: spec.UpperBound.AtVec(i),
		}
	}
	return &Uniform{box: distmv.NewUniform(bounds, source)}, nil
}

// Action returns a uniformly random action
func (u *Uniform) Action() *mat.VecDense {
	if u.discrete {
		action := float64(u.low + u.rng.Intn(u.n))
		return mat.NewVecDense(1, []float64{action})
	}
	sample := u.box.Rand(nil)
	return mat.NewVecDense(len(sample), sample)
}

// Reset implements the Policy interface, Uniform has no state
func (u *Uniform) Reset() {}

// Noisy selects continuous actions by adding noise to the centre of
// the action bounds, clipping the result to the bounds. With
// OrnsteinUhlenbeck noise this produces a temporally correlated random
// walk through the action space.
type Noisy struct {
	noise  Noise
	centre *mat.VecDense
	low    mat.Vector
	high   mat.Vector
}

// NewNoisy returns a new Noisy policy over the continuous actions
// described by spec
func NewNoisy(spec env.Spec, noise Noise) (*Noisy, error) {
	if spec.Cardinality != env.Continuous {
		return nil, fmt.Errorf("newNoisy: actions must be continuous")
	}

	centre := mat.NewVecDense(spec.Len(), nil)
	centre.AddVec(spec.LowerBound, spec.UpperBound)
	centre.ScaleVec(0.5, centre)

	return &Noisy{
		noise:  noise,
		centre: centre,
		low:    spec.LowerBound,
		high:   spec.UpperBound,
	}, nil
}

// Action returns the next noisy action
func (n *Noisy) Action() *mat.VecDense {
	action := n.noise.Sample()
	if action.Len() != n.centre.Len() {
		panic(fmt.Sprintf("action: noise has length %v, actions have "+
			"length %v", action.Len(), n.centre.Len()))
	}
	action.AddVec(action, n.centre)
	matutils.VecClip(action, n.low, n.high)
	return action
}

// Reset resets the noise process
func (n *Noisy) Reset() {
	n.noise.Reset()
}
