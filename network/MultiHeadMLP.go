package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted.
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for gobbing
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    *G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit is always added so that the network
// predicts outputs values for each input. For index i, hiddenSizes[i]
// is the number of nodes in hidden layer i, biases[i] is true if the
// hidden layer has a bias unit, and activations[i] is the activation
// function of hidden layer i. The parameter init determines the weight
// initialization scheme.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newMultiHeadMLP: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newMultiHeadMLP: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if features < 1 || batch < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMultiHeadMLP: features, batch size, " +
			"and outputs must be positive")
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	layers := make([]*fcLayer, 0, len(hiddenSizes)+1)
	in := features
	for i := range hiddenSizes {
		layers = append(layers, newFCLayer(g, in, hiddenSizes[i], biases[i],
			activations[i], init, fmt.Sprintf("L%d", i)))
		in = hiddenSizes[i]
	}
	layers = append(layers, newFCLayer(g, in, outputs, true, Identity(), init,
		fmt.Sprintf("L%d", len(hiddenSizes))))

	network := &multiHeadMLP{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
	}

	if _, err := network.fwd(input); err != nil {
		msg := "newMultiHeadMLP: could not compute forward pass: %v"
		return nil, fmt.Errorf(msg, err)
	}
	return network, nil
}

// Graph returns the computational graph of the multiHeadMLP.
func (e *multiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// Clone clones a multiHeadMLP
func (e *multiHeadMLP) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithBatch clones a multiHeadMLP with a new input batch
// size.
func (e *multiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be "+
			"positive \n\twant(>0) \n\thave(%v)", batchSize)
	}
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]*fcLayer, len(e.layers))
	for i := range e.layers {
		layers[i] = e.layers[i].cloneTo(graph)
	}

	network := &multiHeadMLP{
		g:           graph,
		layers:      layers,
		input:       input,
		numOutputs:  e.numOutputs,
		numInputs:   e.numInputs,
		batchSize:   batchSize,
		hiddenSizes: e.hiddenSizes,
		biases:      e.biases,
		activations: e.activations,
	}
	if _, err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone: %v", err)
	}
	return network, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *multiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (e *multiHeadMLP) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *multiHeadMLP) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *multiHeadMLP) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs \n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of a multiHeadMLP to be equal to the
// weights of another multiHeadMLP
func (e *multiHeadMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := e.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: incompatible networks \n\twant(%v "+
			"learnables) \n\thave(%v learnables)", len(nodes),
			len(sourceNodes))
	}

	for i, dest := range nodes {
		weights := sourceNodes[i].Value().(*tensor.Dense).Clone()
		if err := G.Let(dest, weights.(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Polyak sets the weights of a multiHeadMLP to be a polyak
// average between its existing weights and the weights of another
// multiHeadMLP: w <- (1 - tau) w + tau w_source
func (e *multiHeadMLP) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := e.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: incompatible networks \n\twant(%v "+
			"learnables) \n\thave(%v learnables)", len(nodes),
			len(sourceNodes))
	}

	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
	}
	return nil
}

// Learnables returns the learnable nodes in a multiHeadMLP
func (e *multiHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(e.layers))
		for i := range e.layers {
			learnables = append(learnables, e.layers[i].learnables()...)
		}
		e.learnables = G.Nodes(learnables)
	}
	return e.learnables
}

// Model returns the learnables nodes with their gradients.
func (e *multiHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		e.model = make([]G.ValueGrad, 0, 2*len(e.layers))
		for _, node := range e.Learnables() {
			e.model = append(e.model, node)
		}
	}
	return e.model
}

// fwd performs the forward pass of the multiHeadMLP on the input
// node
func (e *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	inputShape := input.Shape()[len(input.Shape())-1]
	if inputShape != e.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", e.numInputs, inputShape)
	}

	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	e.predVal = new(G.Value)
	G.Read(e.prediction, e.predVal)

	return pred, nil
}

// Output returns the output of the multiHeadMLP.
func (e *multiHeadMLP) Output() G.Value {
	return *e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the multiHeadMLP
func (e *multiHeadMLP) Prediction() *G.Node {
	return e.prediction
}

// GobEncode implements the gob.GobEncoder interface
func (e *multiHeadMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	header := []interface{}{
		e.numOutputs,
		e.numInputs,
		e.batchSize,
		e.hiddenSizes,
		e.biases,
		e.activations,
	}
	for _, h := range header {
		if err := enc.Encode(h); err != nil {
			return nil, fmt.Errorf("gobEncode: could not encode network "+
				"structure: %v", err)
		}
	}

	for i, node := range e.Learnables() {
		data := node.Value().Data().([]float64)
		if err := enc.Encode(data); err != nil {
			msg := "gobEncode: could not encode learnable %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (e *multiHeadMLP) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var numOutputs, numInputs, batchSize int
	var hiddenSizes []int
	var biases []bool
	var activations []*Activation
	header := []interface{}{
		&numOutputs,
		&numInputs,
		&batchSize,
		&hiddenSizes,
		&biases,
		&activations,
	}
	for _, h := range header {
		if err := dec.Decode(h); err != nil {
			return fmt.Errorf("gobDecode: could not decode network "+
				"structure: %v", err)
		}
	}

	// gob decodes empty slices as nil
	if hiddenSizes == nil {
		hiddenSizes, biases, activations = []int{}, []bool{}, []*Activation{}
	}

	net, err := NewMultiHeadMLP(numInputs, batchSize, numOutputs, G.NewGraph(),
		hiddenSizes, biases, G.Zeroes(), activations)
	if err != nil {
		return fmt.Errorf("gobDecode: could not construct network: %v", err)
	}
	mlp := net.(*multiHeadMLP)

	for i, node := range mlp.Learnables() {
		var data []float64
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("gobDecode: could not decode learnable %v: %v",
				i, err)
		}
		weights := tensor.New(
			tensor.WithShape(node.Shape()...),
			tensor.WithBacking(data),
		)
		if err := G.Let(node, weights); err != nil {
			return fmt.Errorf("gobDecode: could not set learnable %v: %v", i,
				err)
		}
	}

	*e = *mlp
	return nil
}

// Encode gob encodes a NeuralNet created by this package
func Encode(net NeuralNet) ([]byte, error) {
	enc, ok := net.(gob.GobEncoder)
	if !ok {
		return nil, fmt.Errorf("encode: network %T is not gob encodable", net)
	}
	return enc.GobEncode()
}

// Decode decodes a NeuralNet encoded with Encode
func Decode(data []byte) (NeuralNet, error) {
	net := &multiHeadMLP{}
	if err := net.GobDecode(data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return net, nil
}
