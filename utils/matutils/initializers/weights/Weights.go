// Package weights defines weight initializers for linear function
// approximators
package weights

import "gonum.org/v1/gonum/mat"

// Initializer initializes weights
type Initializer interface {
	Initialize(weights *mat.Dense) // initializes weights
}

// Zero initializes all weights to 0
type Zero struct{}

// Initialize sets all weights to 0
func (Zero) Initialize(weights *mat.Dense) {
	if weights == nil {
		return
	}
	weights.Zero()
}
