package expreplay

import (
	"fmt"
	"math"
)

// SumTree is an array-backed complete binary tree whose leaves hold
// priorities and whose internal nodes hold the sum of their children.
// It supports O(log n) priority updates and O(log n) sampling of a
// leaf in proportion to its priority.
//
// For a tree with capacity n, the tree holds 2n-1 nodes. Node i has
// children 2i+1 and 2i+2, and leaf j is stored at node n-1+j.
type SumTree struct {
	nodes    []float64
	capacity int
}

// NewSumTree returns a new SumTree with capacity leaves, all with
// priority 0
func NewSumTree(capacity int) *SumTree {
	if capacity < 1 {
		panic(fmt.Sprintf("newSumTree: capacity must be positive, have %v",
			capacity))
	}
	return &SumTree{
		nodes:    make([]float64, 2*capacity-1),
		capacity: capacity,
	}
}

// Capacity returns the number of leaves in the tree
func (s *SumTree) Capacity() int {
	return s.capacity
}

// Total returns the sum of all leaf priorities
func (s *SumTree) Total() float64 {
	return s.nodes[0]
}

// Leaf returns the priority of leaf i
func (s *SumTree) Leaf(i int) float64 {
	if i < 0 || i >= s.capacity {
		panic(fmt.Sprintf("leaf: index %v out of range [0, %v)", i,
			s.capacity))
	}
	return s.nodes[s.capacity-1+i]
}

// Update sets the priority of leaf i and updates the sums of all its
// ancestors. Parent sums are recomputed from their children rather than
// adjusted by a delta so that rounding errors do not accumulate.
func (s *SumTree) Update(i int, priority float64) error {
	if i < 0 || i >= s.capacity {
		return fmt.Errorf("update: leaf index %v out of range [0, %v)", i,
			s.capacity)
	}
	if priority < 0 || math.IsNaN(priority) || math.IsInf(priority, 0) {
		return fmt.Errorf("update: priority must be finite and "+
			"non-negative \n\thave(%v)", priority)
	}

	node := s.capacity - 1 + i
	s.nodes[node] = priority
	for node > 0 {
		node = (node - 1) / 2
		s.nodes[node] = s.nodes[2*node+1] + s.nodes[2*node+2]
	}
	return nil
}

// Get returns the leaf at which the cumulative sum of priorities first
// exceeds prefix, together with the leaf's priority. Values of prefix
// outside [0, Total()) are clamped to that range. Leaves with zero
// priority are never returned unless every leaf has zero priority.
func (s *SumTree) Get(prefix float64) (int, float64) {
	if prefix < 0 {
		prefix = 0
	}

	node := 0
	for node < s.capacity-1 {
		left := 2*node + 1
		right := left + 1
		if prefix < s.nodes[left] || s.nodes[right] <= 0 {
			node = left
		} else {
			prefix -= s.nodes[left]
			node = right
		}
	}
	return node - (s.capacity - 1), s.nodes[node]
}

// Max returns the largest leaf priority. Max runs in O(n) time.
func (s *SumTree) Max() float64 {
	max := 0.0
	for _, p := range s.nodes[s.capacity-1:] {
		max = math.Max(max, p)
	}
	return max
}

// Min returns the smallest non-zero leaf priority, or 0 if all leaves
// have zero priority. Min runs in O(n) time.
func (s *SumTree) Min() float64 {
	min := math.Inf(1)
	for _, p := range s.nodes[s.capacity-1:] {
		if p > 0 {
			min = math.Min(min, p)
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// valid returns whether every internal node equals the sum of its
// children, within tol
func (s *SumTree) valid(tol float64) bool {
	for node := 0; node < s.capacity-1; node++ {
		sum := s.nodes[2*node+1] + s.nodes[2*node+2]
		if math.Abs(s.nodes[node]-sum) > tol {
			return false
		}
	}
	return true
}
