package expreplay

import (
	"github.com/samuelfneumann/gorl/timestep"
	"golang.org/x/exp/rand"
)

// Uniform implements an experience replay buffer which samples stored
// transitions uniformly at random with replacement.
type Uniform struct {
	*cache
	rng *rand.Rand
}

// New returns a new Uniform experience replay buffer which holds at
// most capacity transitions. The featureSize and actionSize parameters
// define the size of the state and action vectors. Pixel observations
// should be flattened before adding to the buffer.
func New(capacity, featureSize, actionSize int,
	seed uint64) (*Uniform, error) {
	c, err := newCache(capacity, featureSize, actionSize)
	if err != nil {
		return nil, err
	}

	return &Uniform{
		cache: c,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Add adds a transition to the buffer in O(1) time
func (u *Uniform) Add(t timestep.Transition) error {
	_, err := u.add(t)
	return err
}

// Sample samples batchSize transitions uniformly at random with
// replacement. If the buffer holds fewer than batchSize transitions,
// an error matching ErrInsufficientData is returned.
func (u *Uniform) Sample(batchSize int) (*Batch, error) {
	if err := u.checkSample(batchSize); err != nil {
		return nil, err
	}

	b := newBatch(batchSize, u.featureSize, u.actionSize)
	for i := 0; i < batchSize; i++ {
		u.fill(b, i, u.rng.Intn(u.size))
		b.Weights[i] = 1.0
	}
	return b, nil
}
