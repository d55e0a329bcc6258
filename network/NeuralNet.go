// Package network implements feed forward neural networks as Gorgonia
// computational graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network built on a Gorgonia computational
// graph. Running the graph with a VM computes the network's
// prediction for the input given by SetInput.
type NeuralNet interface {
	Graph() *G.ExprGraph

	// Clone returns a copy of the network, with copied weights, on a
	// new computational graph
	Clone() (NeuralNet, error)

	// CloneWithBatch is like Clone, but the returned network takes
	// input batches of a different size
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the input of the network to a row-major batch of
	// BatchSize() feature vectors
	SetInput([]float64) error

	// Set sets the weights of the network to those of another network
	Set(NeuralNet) error

	// Polyak sets the weights of the network to a Polyak average of
	// its own weights and those of another network
	Polyak(NeuralNet, float64) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Output returns the value of the prediction after the graph has
	// been run
	Output() G.Value
	Prediction() *G.Node
}
