// Package expreplay implements experience replay buffers: a uniform
// ring buffer, a proportional prioritized buffer backed by a sum-tree,
// and an n-step wrapper which turns consecutive transitions into
// n-step transitions before storing them.
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/gorl/timestep"
	"gonum.org/v1/gonum/mat"
)

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, overwriting the oldest
	// transition if the buffer is full
	Add(t timestep.Transition) error

	// Sample samples a batch of transitions from the buffer
	Sample(batchSize int) (*Batch, error)

	// Len returns the current number of transitions in the buffer
	Len() int

	// Capacity returns the maximum number of transitions in the buffer
	Capacity() int

	// FeatureSize returns the length of stored state vectors
	FeatureSize() int

	// ActionSize returns the length of stored action vectors
	ActionSize() int
}

// Prioritizer is an ExperienceReplayer which samples transitions
// in proportion to their priorities and corrects for the sampling bias
// with importance sampling weights.
type Prioritizer interface {
	ExperienceReplayer

	// UpdatePriorities sets the priorities of the transitions at
	// indices based on their TD errors
	UpdatePriorities(indices []int, tdErrors []float64) error

	// SetBeta sets the importance sampling exponent used by Sample
	SetBeta(beta float64)

	// Beta returns the importance sampling exponent used by Sample
	Beta() float64
}

// AsPrioritizer returns the Prioritizer which underlies an
// ExperienceReplayer, unwrapping any wrapper buffers such as NStep.
func AsPrioritizer(e ExperienceReplayer) (Prioritizer, bool) {
	for e != nil {
		if p, ok := e.(Prioritizer); ok {
			return p, true
		}
		u, ok := e.(interface{ Unwrap() ExperienceReplayer })
		if !ok {
			return nil, false
		}
		e = u.Unwrap()
	}
	return nil, false
}

// Batch is a batch of transitions sampled from a buffer. Vector data is
// stored row-major, so that row i of States is
// States[i*FeatureSize:(i+1)*FeatureSize].
type Batch struct {
	States     []float64
	Actions    []float64
	Rewards    []float64
	Discounts  []float64
	NextStates []float64
	Dones      []bool

	// Indices holds the buffer position each transition was sampled
	// from, used to update priorities of prioritized buffers
	Indices []int

	// Weights holds the importance sampling weight of each transition.
	// Uniformly sampled batches have all weights equal to 1.
	Weights []float64

	FeatureSize int
	ActionSize  int
}

// newBatch returns a new zeroed Batch
func newBatch(size, featureSize, actionSize int) *Batch {
	return &Batch{
		States:      make([]float64, size*featureSize),
		Actions:     make([]float64, size*actionSize),
		Rewards:     make([]float64, size),
		Discounts:   make([]float64, size),
		NextStates:  make([]float64, size*featureSize),
		Dones:       make([]bool, size),
		Indices:     make([]int, size),
		Weights:     make([]float64, size),
		FeatureSize: featureSize,
		ActionSize:  actionSize,
	}
}

// Len returns the number of transitions in the batch
func (b *Batch) Len() int {
	return len(b.Rewards)
}

// StateMatrix returns the batch of states as a Len() x FeatureSize
// matrix which shares the backing data of the batch
func (b *Batch) StateMatrix() *mat.Dense {
	return mat.NewDense(b.Len(), b.FeatureSize, b.States)
}

// NextStateMatrix returns the batch of next states as a
// Len() x FeatureSize matrix which shares the backing data of the batch
func (b *Batch) NextStateMatrix() *mat.Dense {
	return mat.NewDense(b.Len(), b.FeatureSize, b.NextStates)
}

// ActionMatrix returns the batch of actions as a Len() x ActionSize
// matrix which shares the backing data of the batch
func (b *Batch) ActionMatrix() *mat.Dense {
	return mat.NewDense(b.Len(), b.ActionSize, b.Actions)
}

// Transition returns the i-th transition of the batch. The vectors
// of the returned transition share the backing data of the batch.
func (b *Batch) Transition(i int) timestep.Transition {
	if i < 0 || i >= b.Len() {
		panic(fmt.Sprintf("transition: index %v out of range [0, %v)", i,
			b.Len()))
	}
	fs, as := b.FeatureSize, b.ActionSize
	return timestep.Transition{
		State:     mat.NewVecDense(fs, b.States[i*fs:(i+1)*fs]),
		Action:    mat.NewVecDense(as, b.Actions[i*as:(i+1)*as]),
		Reward:    b.Rewards[i],
		Discount:  b.Discounts[i],
		NextState: mat.NewVecDense(fs, b.NextStates[i*fs:(i+1)*fs]),
		Done:      b.Dones[i],
	}
}
