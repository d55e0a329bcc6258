// Package dqn implements DQN and Double DQN with linear function
// approximation: Q(s, ·) = Ws + b. Learned weights are updated with
// semi-gradient steps on the importance-weighted squared TD error, and
// target weights provide the bootstrap values.
package dqn

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/exploration"
	"github.com/samuelfneumann/gorl/expreplay"
	ts "github.com/samuelfneumann/gorl/timestep"
	"github.com/samuelfneumann/gorl/utils/matutils"
	"github.com/samuelfneumann/gorl/utils/matutils/initializers/weights"
)

// DQN implements linear DQN with an ε-greedy behaviour policy
type DQN struct {
	config Config
	seed   uint64

	weights *mat.Dense // numActions x features
	bias    *mat.VecDense

	targetWeights *mat.Dense
	targetBias    *mat.VecDense

	policy      *exploration.EpsilonGreedy
	step        int
	evalEpsilon float64
	eval        bool

	numActions   int
	features     int
	actionOffset float64
}

// New creates and returns a new linear DQN agent
func New(e env.Environment, c Config, seed uint64) (*DQN, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	numActions, err := e.ActionSpec().NumActions()
	if err != nil {
		return nil, fmt.Errorf("new: dqn requires discrete actions: %w", err)
	}
	features := e.ObservationSpec().Len()

	d, err := newDQN(c, seed, numActions, features,
		e.ActionSpec().LowerBound.AtVec(0))
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	var init weights.Initializer = weights.Zero{}
	if c.InitScale > 0 {
		init = weights.NewLinearUV(distuv.Uniform{
			Min: -c.InitScale,
			Max: c.InitScale,
			Src: rand.NewSource(seed),
		})
	}
	init.Initialize(d.weights)
	d.targetWeights.Copy(d.weights)

	return d, nil
}

// newDQN returns a DQN with zero weights
func newDQN(c Config, seed uint64, numActions, features int,
	actionOffset float64) (*DQN, error) {
	s, err := c.Epsilon.Create()
	if err != nil {
		return nil, err
	}

	return &DQN{
		config:        c,
		seed:          seed,
		weights:       mat.NewDense(numActions, features, nil),
		bias:          mat.NewVecDense(numActions, nil),
		targetWeights: mat.NewDense(numActions, features, nil),
		targetBias:    mat.NewVecDense(numActions, nil),
		policy:        exploration.NewEpsilonGreedy(s, seed),
		evalEpsilon:   c.EvalEpsilon,
		numActions:    numActions,
		features:      features,
		actionOffset:  actionOffset,
	}, nil
}

// actionValues returns the action values of state using the given
// weights
func actionValues(w *mat.Dense, b *mat.VecDense, state mat.Vector) *mat.VecDense {
	values := mat.NewVecDense(b.Len(), nil)
	values.MulVec(w, state)
	values.AddVec(values, b)
	return values
}

// ActionValues returns the learned action values of state
func (d *DQN) ActionValues(state mat.Vector) *mat.VecDense {
	return actionValues(d.weights, d.bias, state)
}

// SelectAction selects an action at the timestep t. In training mode
// each call advances the step which anneals ε.
func (d *DQN) SelectAction(t ts.TimeStep) *mat.VecDense {
	if t.Observation.Len() != d.features {
		panic(fmt.Sprintf("selectAction: invalid observation size "+
			"\n\twant(%v) \n\thave(%v)", d.features, t.Observation.Len()))
	}
	values := d.ActionValues(t.Observation)

	var action int
	if d.eval {
		action = d.policy.SelectWithEpsilon(values, d.evalEpsilon)
	} else {
		action = d.policy.Select(values, d.step)
		d.step++
	}
	return mat.NewVecDense(1, []float64{float64(action) + d.actionOffset})
}

// Update performs a semi-gradient update of the learned weights on a
// batch of transitions
func (d *DQN) Update(b *expreplay.Batch) (float64, []float64, error) {
	if b.FeatureSize != d.features {
		return 0, nil, fmt.Errorf("update: invalid feature size "+
			"\n\twant(%v) \n\thave(%v)", d.features, b.FeatureSize)
	}
	if b.ActionSize != 1 {
		return 0, nil, fmt.Errorf("update: actions must be 1-dimensional "+
			"\n\thave(%v)", b.ActionSize)
	}

	n := b.Len()
	if n == 0 {
		return 0, nil, fmt.Errorf("update: empty batch")
	}

	gradW := mat.NewDense(d.numActions, d.features, nil)
	gradB := mat.NewVecDense(d.numActions, nil)
	tdErrors := make([]float64, n)
	var loss float64

	for i := 0; i < n; i++ {
		t := b.Transition(i)
		a := int(t.Action.AtVec(0) - d.actionOffset)
		if a < 0 || a >= d.numActions {
			return 0, nil, fmt.Errorf("update: illegal action %v",
				t.Action.AtVec(0))
		}

		target := t.Reward
		if t.Discount != 0 {
			target += t.Discount * d.bootstrap(t.NextState)
		}

		δ := target - d.ActionValues(t.State).AtVec(a)
		tdErrors[i] = δ

		w := b.Weights[i]
		loss += w * δ * δ

		row := gradW.RawRowView(a)
		state := t.State.RawVector()
		for j := 0; j < d.features; j++ {
			row[j] += w * δ * state.Data[j*state.Inc]
		}
		gradB.SetVec(a, gradB.AtVec(a)+w*δ)
	}

	scale := d.config.LearningRate / float64(n)
	gradW.Scale(scale, gradW)
	gradB.ScaleVec(scale, gradB)
	d.weights.Add(d.weights, gradW)
	d.bias.AddVec(d.bias, gradB)

	loss /= float64(n)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return loss, tdErrors, fmt.Errorf("update: loss diverged (%v)", loss)
	}
	return loss, tdErrors, nil
}

// bootstrap returns the value of nextState used in the update target
func (d *DQN) bootstrap(nextState mat.Vector) float64 {
	targetValues := actionValues(d.targetWeights, d.targetBias, nextState)
	if !d.config.Double {
		return mat.Max(targetValues)
	}
	greedy := matutils.MaxVec(d.ActionValues(nextState))
	return targetValues.AtVec(greedy)
}

// SyncTarget sets the target weights to θ' <- τθ + (1 - τ)θ'
func (d *DQN) SyncTarget(tau float64) error {
	if tau <= 0 || tau > 1 {
		return fmt.Errorf("syncTarget: tau must be in (0, 1] \n\thave(%v)",
			tau)
	}
	if tau == 1.0 {
		d.targetWeights.Copy(d.weights)
		d.targetBias.CopyVec(d.bias)
		return nil
	}

	d.targetWeights.Scale(1-tau, d.targetWeights)
	d.targetBias.ScaleVec(1-tau, d.targetBias)

	scaled := mat.NewDense(d.numActions, d.features, nil)
	scaled.Scale(tau, d.weights)
	d.targetWeights.Add(d.targetWeights, scaled)
	d.targetBias.AddScaledVec(d.targetBias, tau, d.bias)
	return nil
}

// Epsilon returns the training ε at the current step
func (d *DQN) Epsilon() float64 {
	return d.policy.Epsilon(d.step)
}

// SetStep sets the step used to anneal the training ε
func (d *DQN) SetStep(step int) {
	d.step = step
}

// SetEvalEpsilon sets the ε used in evaluation mode
func (d *DQN) SetEvalEpsilon(epsilon float64) {
	d.evalEpsilon = epsilon
}

// Eval sets the agent into evaluation mode
func (d *DQN) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DQN) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DQN) IsEval() bool {
	return d.eval
}

// GobEncode implements the gob.GobEncoder interface
func (d *DQN) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	values := []interface{}{
		d.config,
		d.seed,
		d.step,
		d.numActions,
		d.features,
		d.actionOffset,
		d.weights,
		d.bias,
		d.targetWeights,
		d.targetBias,
	}
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("gobEncode: %v", err)
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The random
// number generator of the decoded agent is reseeded with its original
// seed.
func (d *DQN) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var c Config
	var seed uint64
	var step, numActions, features int
	var actionOffset float64
	for _, v := range []interface{}{&c, &seed, &step, &numActions, &features,
		&actionOffset} {
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("gobDecode: %v", err)
		}
	}

	decoded, err := newDQN(c, seed, numActions, features, actionOffset)
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	decoded.step = step

	// Matrices can only be unmarshalled into empty receivers
	w, tw := &mat.Dense{}, &mat.Dense{}
	b, tb := &mat.VecDense{}, &mat.VecDense{}
	for _, v := range []interface{}{w, b, tw, tb} {
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("gobDecode: %v", err)
		}
	}
	decoded.weights, decoded.bias = w, b
	decoded.targetWeights, decoded.targetBias = tw, tb

	*d = *decoded
	return nil
}
