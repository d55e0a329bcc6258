package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/gorl/timestep"
	"gonum.org/v1/gonum/mat"
)

// cache is a fixed-capacity ring of transitions stored in flat
// slices. Once full, each new transition overwrites the oldest one.
type cache struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64
	doneCache      []bool

	// cursor is the position the next transition is written to
	cursor int
	size   int

	capacity    int
	featureSize int
	actionSize  int
}

// newCache returns a new cache
func newCache(capacity, featureSize, actionSize int) (*cache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("newCache: capacity must be positive "+
			"\n\twant(>0) \n\thave(%v)", capacity)
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("newCache: feature and action sizes must be "+
			"positive \n\thave(%v, %v)", featureSize, actionSize)
	}

	return &cache{
		stateCache:     make([]float64, capacity*featureSize),
		actionCache:    make([]float64, capacity*actionSize),
		rewardCache:    make([]float64, capacity),
		discountCache:  make([]float64, capacity),
		nextStateCache: make([]float64, capacity*featureSize),
		doneCache:      make([]bool, capacity),
		capacity:       capacity,
		featureSize:    featureSize,
		actionSize:     actionSize,
	}, nil
}

// Len returns the current number of transitions in the cache
func (c *cache) Len() int {
	return c.size
}

// Capacity returns the maximum number of transitions in the cache
func (c *cache) Capacity() int {
	return c.capacity
}

// FeatureSize returns the length of stored state vectors
func (c *cache) FeatureSize() int {
	return c.featureSize
}

// ActionSize returns the length of stored action vectors
func (c *cache) ActionSize() int {
	return c.actionSize
}

// add copies a transition into the cache and returns the position it
// was written to
func (c *cache) add(t timestep.Transition) (int, error) {
	if t.State == nil || t.NextState == nil || t.Action == nil {
		return 0, fmt.Errorf("add: transition has nil vectors")
	}
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return 0, fmt.Errorf("add: invalid feature size \n\twant(%v)"+
			"\n\thave(%v, %v)", c.featureSize, t.State.Len(),
			t.NextState.Len())
	}
	if t.Action.Len() != c.actionSize {
		return 0, fmt.Errorf("add: invalid action size \n\twant(%v)"+
			"\n\thave(%v)", c.actionSize, t.Action.Len())
	}

	index := c.cursor
	copyVec(c.stateCache, index*c.featureSize, c.featureSize, t.State)
	copyVec(c.nextStateCache, index*c.featureSize, c.featureSize,
		t.NextState)
	copyVec(c.actionCache, index*c.actionSize, c.actionSize, t.Action)
	c.rewardCache[index] = t.Reward
	c.discountCache[index] = t.Discount
	c.doneCache[index] = t.Done

	c.cursor = (c.cursor + 1) % c.capacity
	if c.size < c.capacity {
		c.size++
	}
	return index, nil
}

// At returns the transition stored at position i of the cache. The
// returned transition holds copies of the cached data.
func (c *cache) At(i int) timestep.Transition {
	if i < 0 || i >= c.size {
		panic(fmt.Sprintf("at: index %v out of range [0, %v)", i, c.size))
	}

	state := make([]float64, c.featureSize)
	copy(state, c.stateCache[i*c.featureSize:(i+1)*c.featureSize])
	nextState := make([]float64, c.featureSize)
	copy(nextState, c.nextStateCache[i*c.featureSize:(i+1)*c.featureSize])
	action := make([]float64, c.actionSize)
	copy(action, c.actionCache[i*c.actionSize:(i+1)*c.actionSize])

	return timestep.Transition{
		State:     mat.NewVecDense(c.featureSize, state),
		Action:    mat.NewVecDense(c.actionSize, action),
		Reward:    c.rewardCache[i],
		Discount:  c.discountCache[i],
		NextState: mat.NewVecDense(c.featureSize, nextState),
		Done:      c.doneCache[i],
	}
}

// fill copies the transition at position index into row of a batch
func (c *cache) fill(b *Batch, row, index int) {
	fs, as := c.featureSize, c.actionSize
	copy(b.States[row*fs:(row+1)*fs], c.stateCache[index*fs:(index+1)*fs])
	copy(b.NextStates[row*fs:(row+1)*fs],
		c.nextStateCache[index*fs:(index+1)*fs])
	copy(b.Actions[row*as:(row+1)*as], c.actionCache[index*as:(index+1)*as])
	b.Rewards[row] = c.rewardCache[index]
	b.Discounts[row] = c.discountCache[index]
	b.Dones[row] = c.doneCache[index]
	b.Indices[row] = index
}

// checkSample returns an error if a batch of batchSize transitions
// cannot be sampled from the cache
func (c *cache) checkSample(batchSize int) error {
	if batchSize < 1 {
		return fmt.Errorf("sample: batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", batchSize)
	}
	if c.size == 0 {
		return &ExpReplayError{Op: "sample", Err: ErrEmptyBuffer}
	}
	if c.size < batchSize {
		return &ExpReplayError{
			Op: "sample",
			Err: fmt.Errorf("have %v transitions, need %v: %w", c.size,
				batchSize, ErrInsufficientData),
		}
	}
	return nil
}

func (c *cache) String() string {
	baseStr := "Size: %v \nCursor: %v \nStates: %v \nActions: %v " +
		"\nRewards: %v \nDiscounts: %v \nNext States: %v \nDones: %v"
	return fmt.Sprintf(baseStr, c.size, c.cursor, c.stateCache,
		c.actionCache, c.rewardCache, c.discountCache, c.nextStateCache,
		c.doneCache)
}

// copyVec copies the n elements of v into dst starting at position
// start
func copyVec(dst []float64, start, n int, v *mat.VecDense) {
	mat.NewVecDense(n, dst[start:start+n]).CopyVec(v)
}
