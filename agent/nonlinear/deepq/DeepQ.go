// Package deepq implements deep Q-learning with a multi-layered
// perceptron action-value network built with Gorgonia. The loss is
// the importance-weighted mean squared TD error, so that prioritized
// replay buffers can correct for their sampling bias.
package deepq

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/exploration"
	"github.com/samuelfneumann/gorl/expreplay"
	"github.com/samuelfneumann/gorl/network"
	ts "github.com/samuelfneumann/gorl/timestep"
	"github.com/samuelfneumann/gorl/utils/matutils"
)

// DeepQ implements the deep Q-learning algorithm with target networks
// and optional Double Q-learning targets.
type DeepQ struct {
	config Config
	seed   uint64

	// Network for selecting actions, one state at a time
	behaviourNet network.NeuralNet
	behaviourVM  G.VM

	// Network whose weights are adapted, taking in batches of inputs
	trainNet network.NeuralNet
	trainVM  G.VM
	solver   G.Solver

	// Network that provides the update target for a batch of inputs
	targetNet network.NeuralNet
	targetVM  G.VM

	// Copy of trainNet evaluated on next states to select the greedy
	// next action of Double Q-learning targets
	nextNet network.NeuralNet
	nextVM  G.VM

	// Input nodes of the trainNet graph. For the update:
	//
	// Q(s, a) <- Q(s, a) + α * w * (r + γ * v(s') - Q(s, a)) ∇Q(s, a)
	//
	// nextStateValues provides v(s'), computed by targetNet, and
	// isWeights provides the importance sampling weights w.
	selectedActions *G.Node
	rewards         *G.Node
	discounts       *G.Node
	nextStateValues *G.Node
	isWeights       *G.Node

	tdErrorVal *G.Value
	lossVal    *G.Value

	policy      *exploration.EpsilonGreedy
	step        int
	evalEpsilon float64
	eval        bool

	numActions   int
	features     int
	actionOffset float64
}

// New creates and returns a new DeepQ agent
func New(e env.Environment, c Config, seed uint64) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	numActions, err := e.ActionSpec().NumActions()
	if err != nil {
		return nil, fmt.Errorf("new: deepq requires discrete actions: %w",
			err)
	}
	features := e.ObservationSpec().Len()

	init, err := c.InitWFn.Create()
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	activations, err := c.activations()
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	// Behaviour network for selecting actions
	behaviourNet, err := network.NewMultiHeadMLP(features, 1, numActions,
		G.NewGraph(), c.Layers, c.Biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour network: %v",
			err)
	}

	d, err := build(c, seed, behaviourNet, e.ActionSpec().LowerBound.AtVec(0))
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return d, nil
}

// build constructs a DeepQ agent whose networks all have the weights
// of behaviourNet
func build(c Config, seed uint64, behaviourNet network.NeuralNet,
	actionOffset float64) (*DeepQ, error) {
	batchSize := c.BatchSize
	numActions := behaviourNet.Outputs()

	trainNet, err := behaviourNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("could not create learning network: %v", err)
	}
	targetNet, err := behaviourNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("could not create target network: %v", err)
	}
	nextNet, err := behaviourNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("could not create next state network: %v",
			err)
	}
	gTrain := trainNet.Graph()

	// Create nodes to compute the update target: r + γ * v(s')
	nextStateValues := G.NewVector(gTrain, tensor.Float64,
		G.WithShape(batchSize), G.WithName("nextStateValues"))
	rewards := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("reward"))
	discounts := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("discount"))
	isWeights := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("isWeights"))

	updateTarget := G.Must(G.HadamardProd(nextStateValues, discounts))
	updateTarget = G.Must(G.Add(updateTarget, rewards))

	// Action selected in the previous state as a one-hot vector. This is
	// needed to compute the loss using the correct action value since
	// the network outputs one action value for each environmental action
	selectedActions := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("actionSelected"))
	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the importance-weighted mean squared TD error
	tdErrors := G.Must(G.Sub(updateTarget, selectedActionsValue))
	losses := G.Must(G.Square(tdErrors))
	losses = G.Must(G.HadamardProd(losses, isWeights))
	cost := G.Must(G.Mean(losses))

	d := &DeepQ{
		config:          c,
		seed:            seed,
		behaviourNet:    behaviourNet,
		trainNet:        trainNet,
		targetNet:       targetNet,
		nextNet:         nextNet,
		selectedActions: selectedActions,
		rewards:         rewards,
		discounts:       discounts,
		nextStateValues: nextStateValues,
		isWeights:       isWeights,
		evalEpsilon:     c.EvalEpsilon,
		numActions:      numActions,
		features:        behaviourNet.Features(),
		actionOffset:    actionOffset,
		tdErrorVal:      new(G.Value),
		lossVal:         new(G.Value),
	}
	G.Read(tdErrors, d.tdErrorVal)
	G.Read(cost, d.lossVal)

	if _, err = G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("could not compute gradient: %v", err)
	}

	// The loss is already a mean over the batch
	d.solver, err = c.Solver.Create(1)
	if err != nil {
		return nil, err
	}

	s, err := c.Epsilon.Create()
	if err != nil {
		return nil, err
	}
	d.policy = exploration.NewEpsilonGreedy(s, seed)

	// Compile the graphs into VMs
	d.behaviourVM = G.NewTapeMachine(behaviourNet.Graph())
	d.targetVM = G.NewTapeMachine(targetNet.Graph())
	d.nextVM = G.NewTapeMachine(nextNet.Graph())
	d.trainVM = G.NewTapeMachine(gTrain,
		G.BindDualValues(trainNet.Learnables()...))

	return d, nil
}

// ActionValues returns the learned action values of state
func (d *DeepQ) ActionValues(state *mat.VecDense) (*mat.VecDense, error) {
	if state.Len() != d.features {
		return nil, fmt.Errorf("actionValues: invalid state size "+
			"\n\twant(%v) \n\thave(%v)", d.features, state.Len())
	}

	obs := make([]float64, d.features)
	copy(obs, state.RawVector().Data)
	if err := d.behaviourNet.SetInput(obs); err != nil {
		return nil, fmt.Errorf("actionValues: %v", err)
	}

	// Run the behaviour network's computational graph
	defer d.behaviourVM.Reset()
	if err := d.behaviourVM.RunAll(); err != nil {
		return nil, fmt.Errorf("actionValues: %v", err)
	}

	values := d.behaviourNet.Output().Data().([]float64)
	return mat.NewVecDense(d.numActions, append([]float64(nil),
		values...)), nil
}

// SelectAction selects an action at the timestep t. In training mode
// each call advances the step which anneals ε.
func (d *DeepQ) SelectAction(t ts.TimeStep) *mat.VecDense {
	values, err := d.ActionValues(t.Observation)
	if err != nil {
		panic(fmt.Sprintf("selectAction: %v", err))
	}

	var action int
	if d.eval {
		action = d.policy.SelectWithEpsilon(values, d.evalEpsilon)
	} else {
		action = d.policy.Select(values, d.step)
		d.step++
	}
	return mat.NewVecDense(1, []float64{float64(action) + d.actionOffset})
}

// Update performs a single gradient step on a batch of transitions
func (d *DeepQ) Update(b *expreplay.Batch) (float64, []float64, error) {
	if b.Len() != d.config.BatchSize {
		return 0, nil, fmt.Errorf("update: invalid batch size \n\twant(%v) "+
			"\n\thave(%v)", d.config.BatchSize, b.Len())
	}
	if b.FeatureSize != d.features || b.ActionSize != 1 {
		return 0, nil, fmt.Errorf("update: invalid batch shape "+
			"\n\twant(%v, 1) \n\thave(%v, %v)", d.features, b.FeatureSize,
			b.ActionSize)
	}

	// Previous actions as one-hot vectors
	oneHot := make([]float64, b.Len()*d.numActions)
	for i, action := range b.Actions {
		a := int(action - d.actionOffset)
		if a < 0 || a >= d.numActions {
			return 0, nil, fmt.Errorf("update: illegal action %v", action)
		}
		oneHot[i*d.numActions+a] = 1.0
	}

	nextValues, err := d.nextStateActionValues(b.NextStates)
	if err != nil {
		return 0, nil, fmt.Errorf("update: %v", err)
	}

	states := append([]float64(nil), b.States...)
	if err := d.trainNet.SetInput(states); err != nil {
		return 0, nil, fmt.Errorf("update: could not set input: %v", err)
	}

	inputs := []struct {
		node *G.Node
		data []float64
		rows int
	}{
		{d.selectedActions, oneHot, b.Len()},
		{d.nextStateValues, nextValues, 0},
		{d.rewards, append([]float64(nil), b.Rewards...), 0},
		{d.discounts, append([]float64(nil), b.Discounts...), 0},
		{d.isWeights, append([]float64(nil), b.Weights...), 0},
	}
	for _, in := range inputs {
		shape := []int{len(in.data)}
		if in.rows > 0 {
			shape = []int{in.rows, len(in.data) / in.rows}
		}
		t := tensor.New(tensor.WithShape(shape...),
			tensor.WithBacking(in.data))
		if err := G.Let(in.node, t); err != nil {
			return 0, nil, fmt.Errorf("update: could not set %v: %v",
				in.node.Name(), err)
		}
	}

	// Run the learning step
	defer d.trainVM.Reset()
	if err := d.trainVM.RunAll(); err != nil {
		return 0, nil, fmt.Errorf("update: %v", err)
	}
	tdErrors := append([]float64(nil),
		(*d.tdErrorVal).Data().([]float64)...)
	loss := (*d.lossVal).Data().(float64)

	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		return 0, nil, fmt.Errorf("update: solver step: %v", err)
	}

	// Keep the action selection networks in sync with the learned
	// weights
	if err := d.behaviourNet.Set(d.trainNet); err != nil {
		return 0, nil, fmt.Errorf("update: %v", err)
	}
	if d.config.Double {
		if err := d.nextNet.Set(d.trainNet); err != nil {
			return 0, nil, fmt.Errorf("update: %v", err)
		}
	}

	return loss, tdErrors, nil
}

// nextStateActionValues returns v(s') for each next state in the
// batch: max Q'(s', ·), or Q'(s', argmax Q(s', ·)) for Double Q-learning
func (d *DeepQ) nextStateActionValues(nextStates []float64) ([]float64,
	error) {
	targetValues, err := run(d.targetNet, d.targetVM, nextStates)
	if err != nil {
		return nil, err
	}

	var greedyValues *mat.Dense
	if d.config.Double {
		greedyValues, err = run(d.nextNet, d.nextVM, nextStates)
		if err != nil {
			return nil, err
		}
	}

	values := make([]float64, d.config.BatchSize)
	for i := range values {
		row := targetValues.RowView(i)
		if greedyValues == nil {
			values[i] = mat.Max(row)
			continue
		}
		values[i] = row.AtVec(matutils.MaxVec(greedyValues.RowView(i)))
	}
	return values, nil
}

// run runs a network on a batch of inputs and returns its predictions
// as a batch size x outputs matrix
func run(net network.NeuralNet, vm G.VM, input []float64) (*mat.Dense,
	error) {
	if err := net.SetInput(append([]float64(nil), input...)); err != nil {
		return nil, err
	}
	defer vm.Reset()
	if err := vm.RunAll(); err != nil {
		return nil, err
	}

	out := append([]float64(nil), net.Output().Data().([]float64)...)
	return mat.NewDense(net.BatchSize(), net.Outputs(), out), nil
}

// SyncTarget sets the target network weights to θ' <- τθ + (1 - τ)θ'
func (d *DeepQ) SyncTarget(tau float64) error {
	if tau <= 0 || tau > 1 {
		return fmt.Errorf("syncTarget: tau must be in (0, 1] \n\thave(%v)",
			tau)
	}
	if tau == 1.0 {
		return d.targetNet.Set(d.trainNet)
	}
	return d.targetNet.Polyak(d.trainNet, tau)
}

// Epsilon returns the training ε at the current step
func (d *DeepQ) Epsilon() float64 {
	return d.policy.Epsilon(d.step)
}

// SetStep sets the step used to anneal the training ε
func (d *DeepQ) SetStep(step int) {
	d.step = step
}

// SetEvalEpsilon sets the ε used in evaluation mode
func (d *DeepQ) SetEvalEpsilon(epsilon float64) {
	d.evalEpsilon = epsilon
}

// Eval sets the agent into evaluation mode
func (d *DeepQ) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DeepQ) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

// Close closes the VMs of the agent
func (d *DeepQ) Close() error {
	for _, vm := range []G.VM{d.behaviourVM, d.trainVM, d.targetVM, d.nextVM} {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}

// GobEncode implements the gob.GobEncoder interface. Solver state is
// not encoded.
func (d *DeepQ) GobEncode() ([]byte, error) {
	behaviour, err := network.Encode(d.behaviourNet)
	if err != nil {
		return nil, fmt.Errorf("gobEncode: %v", err)
	}
	target, err := network.Encode(d.targetNet)
	if err != nil {
		return nil, fmt.Errorf("gobEncode: %v", err)
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []interface{}{d.config, d.seed, d.step,
		d.actionOffset, behaviour, target} {
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("gobEncode: %v", err)
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (d *DeepQ) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var c Config
	var seed uint64
	var step int
	var actionOffset float64
	var behaviour, target []byte
	for _, v := range []interface{}{&c, &seed, &step, &actionOffset,
		&behaviour, &target} {
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("gobDecode: %v", err)
		}
	}

	behaviourNet, err := network.Decode(behaviour)
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	targetNet, err := network.Decode(target)
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}

	decoded, err := build(c, seed, behaviourNet, actionOffset)
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	if err := decoded.targetNet.Set(targetNet); err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	decoded.step = step

	*d = *decoded
	return nil
}
