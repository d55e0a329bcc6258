package expreplay

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/gorl/timestep"
	"golang.org/x/exp/rand"
)

// DefaultBeta is the importance sampling exponent of a new Prioritized
// buffer
const DefaultBeta float64 = 0.4

// Prioritized implements proportional prioritized experience replay.
// Transition i is sampled with probability p_i / Σ_k p_k, where
// p_i = (|δ_i| + eps)^alpha and δ_i is the last TD error reported for
// transition i. New transitions receive the largest priority seen so
// far, so that each transition is sampled at least once with high
// probability.
//
// Sampling is biased toward high priority transitions. Each sampled
// transition is returned with an importance sampling weight
// w_i = (N * P(i))^-β, normalized by the largest weight in the batch.
type Prioritized struct {
	*cache
	tree *SumTree

	alpha float64
	eps   float64
	beta  float64

	// maxPriority is the largest (|δ| + eps) reported so far, before
	// exponentiation by alpha
	maxPriority float64

	rng *rand.Rand
}

// NewPrioritized returns a new Prioritized experience replay buffer
// which holds at most capacity transitions. The alpha parameter
// determines how much prioritization is used, with alpha = 0
// corresponding to uniform sampling. The eps parameter is added to the
// magnitude of each TD error so that no transition has zero priority.
func NewPrioritized(capacity, featureSize, actionSize int, alpha,
	eps float64, seed uint64) (*Prioritized, error) {
	if alpha < 0 || math.IsNaN(alpha) {
		return nil, fmt.Errorf("newPrioritized: alpha must be non-negative "+
			"\n\twant(>=0) \n\thave(%v)", alpha)
	}
	if eps < 0 || math.IsNaN(eps) {
		return nil, fmt.Errorf("newPrioritized: eps must be non-negative "+
			"\n\twant(>=0) \n\thave(%v)", eps)
	}

	c, err := newCache(capacity, featureSize, actionSize)
	if err != nil {
		return nil, err
	}

	return &Prioritized{
		cache:       c,
		tree:        NewSumTree(capacity),
		alpha:       alpha,
		eps:         eps,
		beta:        DefaultBeta,
		maxPriority: 1.0,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Alpha returns the prioritization exponent
func (p *Prioritized) Alpha() float64 {
	return p.alpha
}

// Beta returns the importance sampling exponent used by Sample
func (p *Prioritized) Beta() float64 {
	return p.beta
}

// SetBeta sets the importance sampling exponent used by Sample
func (p *Prioritized) SetBeta(beta float64) {
	p.beta = beta
}

// Tree returns the sum-tree of priorities. Leaf i of the tree holds the
// priority of the transition at buffer position i.
func (p *Prioritized) Tree() *SumTree {
	return p.tree
}

// Add adds a transition to the buffer with the maximum priority seen
// so far
func (p *Prioritized) Add(t timestep.Transition) error {
	index, err := p.add(t)
	if err != nil {
		return err
	}
	return p.tree.Update(index, math.Pow(p.maxPriority, p.alpha))
}

// Sample samples batchSize transitions in proportion to their
// priorities using the current importance sampling exponent
func (p *Prioritized) Sample(batchSize int) (*Batch, error) {
	return p.SampleWithBeta(batchSize, p.beta)
}

// SampleWithBeta samples batchSize transitions in proportion to their
// priorities. The range [0, Σp) is split into batchSize equal segments
// and one transition is drawn from each segment. The returned batch
// holds the buffer positions of the sampled transitions, which should
// be passed to UpdatePriorities, and their importance sampling weights
// computed with exponent beta.
func (p *Prioritized) SampleWithBeta(batchSize int,
	beta float64) (*Batch, error) {
	if err := p.checkSample(batchSize); err != nil {
		return nil, err
	}
	if beta < 0 || math.IsNaN(beta) {
		return nil, fmt.Errorf("sampleWithBeta: beta must be non-negative "+
			"\n\twant(>=0) \n\thave(%v)", beta)
	}

	total := p.tree.Total()
	if total <= 0 {
		return nil, fmt.Errorf("sampleWithBeta: total priority must be "+
			"positive \n\thave(%v)", total)
	}

	b := newBatch(batchSize, p.featureSize, p.actionSize)
	segment := total / float64(batchSize)
	n := float64(p.size)
	maxWeight := 0.0

	for i := 0; i < batchSize; i++ {
		mass := (float64(i) + p.rng.Float64()) * segment
		index, priority := p.tree.Get(math.Min(mass, total))

		// Floating point error in the tree sums may rarely land the walk on
		// a slot which has not been written yet
		if index >= p.size {
			index = p.rng.Intn(p.size)
			priority = p.tree.Leaf(index)
		}

		p.fill(b, i, index)
		prob := priority / total
		b.Weights[i] = math.Pow(n*prob, -beta)
		maxWeight = math.Max(maxWeight, b.Weights[i])
	}

	for i := range b.Weights {
		if maxWeight > 0 && !math.IsInf(maxWeight, 1) {
			b.Weights[i] /= maxWeight
		} else {
			b.Weights[i] = 1.0
		}
	}
	return b, nil
}

// UpdatePriorities sets the priority of the transition at buffer
// position indices[i] to (|tdErrors[i]| + eps)^alpha. If any index or
// TD error is invalid, no priority is changed.
func (p *Prioritized) UpdatePriorities(indices []int,
	tdErrors []float64) error {
	if len(indices) != len(tdErrors) {
		return fmt.Errorf("updatePriorities: indices and TD errors must "+
			"have the same length \n\thave(%v, %v)", len(indices),
			len(tdErrors))
	}

	priorities := make([]float64, len(tdErrors))
	leaves := make([]float64, len(tdErrors))
	for i, index := range indices {
		if index < 0 || index >= p.size {
			return fmt.Errorf("updatePriorities: index %v out of range "+
				"[0, %v)", index, p.size)
		}
		if math.IsNaN(tdErrors[i]) || math.IsInf(tdErrors[i], 0) {
			return fmt.Errorf("updatePriorities: TD error must be finite "+
				"\n\thave(%v)", tdErrors[i])
		}

		priorities[i] = math.Abs(tdErrors[i]) + p.eps
		leaves[i] = math.Pow(priorities[i], p.alpha)
		if math.IsInf(leaves[i], 0) {
			return fmt.Errorf("updatePriorities: priority of TD error %v "+
				"overflows", tdErrors[i])
		}
	}

	for i, index := range indices {
		if err := p.tree.Update(index, leaves[i]); err != nil {
			return fmt.Errorf("updatePriorities: %w", err)
		}
		p.maxPriority = math.Max(p.maxPriority, priorities[i])
	}
	return nil
}
