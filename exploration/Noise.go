package exploration

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Noise is a source of additive action noise
type Noise interface {
	// Sample returns the next noise vector
	Sample() *mat.VecDense

	// Reset resets any internal state, usually at the start of an
	// episode
	Reset()
}

// OrnsteinUhlenbeck implements temporally correlated noise which
// follows an Ornstein-Uhlenbeck process:
//
//	x ← x + θ(μ - x)dt + σ√dt N(0, 1)
type OrnsteinUhlenbeck struct {
	size  int
	theta float64
	mu    float64
	sigma float64
	dt    float64

	state  *mat.VecDense
	normal distuv.Normal
}

// NewOrnsteinUhlenbeck returns a new OrnsteinUhlenbeck process over
// vectors of length size
func NewOrnsteinUhlenbeck(size int, theta, mu, sigma, dt float64,
	seed uint64) (*OrnsteinUhlenbeck, error) {
	if size < 1 {
		return nil, fmt.Errorf("newOrnsteinUhlenbeck: size must be "+
			"positive \n\thave(%v)", size)
	}
	if theta < 0 || sigma < 0 || dt <= 0 {
		return nil, fmt.Errorf("newOrnsteinUhlenbeck: theta and sigma "+
			"must be non-negative and dt positive \n\thave(%v, %v, %v)",
			theta, sigma, dt)
	}

	o := &OrnsteinUhlenbeck{
		size:   size,
		theta:  theta,
		mu:     mu,
		sigma:  sigma,
		dt:     dt,
		state:  mat.NewVecDense(size, nil),
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}
	o.Reset()
	return o, nil
}

// Reset sets the process back to its mean
func (o *OrnsteinUhlenbeck) Reset() {
	for i := 0; i < o.size; i++ {
		o.state.SetVec(i, o.mu)
	}
}

// Sample advances the process by one step and returns a copy of its
// state
func (o *OrnsteinUhlenbeck) Sample() *mat.VecDense {
	scale := o.sigma * math.Sqrt(o.dt)
	for i := 0; i < o.size; i++ {
		x := o.state.AtVec(i)
		x += o.theta*(o.mu-x)*o.dt + scale*o.normal.Rand()
		o.state.SetVec(i, x)
	}
	return mat.VecDenseCopyOf(o.state)
}

// Gaussian implements uncorrelated, zero mean Gaussian noise
type Gaussian struct {
	size   int
	normal distuv.Normal
}

// NewGaussian returns a new Gaussian noise source over vectors of
// length size with standard deviation sigma
func NewGaussian(size int, sigma float64, seed uint64) (*Gaussian, error) {
	if size < 1 || sigma < 0 {
		return nil, fmt.Errorf("newGaussian: size must be positive and "+
			"sigma non-negative \n\thave(%v, %v)", size, sigma)
	}
	return &Gaussian{
		size:   size,
		normal: distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)},
	}, nil
}

// Reset implements the Noise interface, Gaussian noise has no state
func (g *Gaussian) Reset() {}

// Sample returns a new noise vector
func (g *Gaussian) Sample() *mat.VecDense {
	noise := make([]float64, g.size)
	for i := range noise {
		noise[i] = g.normal.Rand()
	}
	return mat.NewVecDense(g.size, noise)
}
