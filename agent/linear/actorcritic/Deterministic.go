// Package actorcritic implements a linear deterministic actor-critic
// for continuous actions, in the style of DDPG.
//
// The actor is μ(s) = clip(Wφ(s) + b), where φ(s) rescales each
// bounded observation dimension to [-1, 1]. The critic is linear in the
// features [φ(s), a, a⊗φ(s)], so that its action gradient depends on
// the state. The critic is trained towards the Q-learning target
// r + γQ'(s', μ'(s')) computed with target copies of both
// approximators, and the actor follows the deterministic policy
// gradient ∇ₐQ(s, a)|ₐ₌μ(s) ∇μ(s). Both updates are weighted by the
// importance sampling weights of the batch.
package actorcritic

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

// Deterministic implements a linear deterministic actor-critic with
// additive exploration noise
type Deterministic struct {
	config Config
	seed   uint64

	actorWeights  *mat.Dense // actionDims x features
	actorBias     *mat.VecDense
	criticWeights *mat.VecDense // features + actionDims*(1 + features)
	criticBias    float64

	targetActorWeights  *mat.Dense
	targetActorBias     *mat.VecDense
	targetCriticWeights *mat.VecDense
	targetCriticBias    float64

	// φ(s) = scale∘s + shift
	scale *mat.VecDense
	shift *mat.VecDense

	low  *mat.VecDense
	high *mat.VecDense

	noise exploration.Noise
	eval  bool

	features   int
	actionDims int
}

// New creates and returns a new linear deterministic actor-critic
func New(e env.Environment, c Config, seed uint64) (*Deterministic, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	actionSpec := e.ActionSpec()
	if actionSpec.Cardinality != env.Continuous {
		return nil, fmt.Errorf("new: actions must be continuous")
	}
	actionDims := actionSpec.Len()
	for i := 0; i < actionDims; i++ {
		low, high := actionSpec.LowerBound.AtVec(i),
			actionSpec.UpperBound.AtVec(i)
		if math.IsInf(low, 0) || math.IsInf(high, 0) || low > high {
			return nil, fmt.Errorf("new: action bounds must be finite "+
				"\n\thave([%v, %v])", low, high)
		}
	}

	obsSpec := e.ObservationSpec()
	d, err := newDeterministic(c, seed, obsSpec.Len(), actionDims)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	d.low = mat.VecDenseCopyOf(actionSpec.LowerBound)
	d.high = mat.VecDenseCopyOf(actionSpec.UpperBound)

	for i := 0; i < d.features; i++ {
		low, high := obsSpec.LowerBound.AtVec(i), obsSpec.UpperBound.AtVec(i)
		if math.IsInf(low, 0) || math.IsInf(high, 0) || high <= low {
			continue
		}
		d.scale.SetVec(i, 2/(high-low))
		d.shift.SetVec(i, -(high+low)/(high-low))
	}

	var init weights.Initializer = weights.Zero{}
	if c.InitScale > 0 {
		init = weights.NewLinearUV(distuv.Uniform{
			Min: -c.InitScale,
			Max: c.InitScale,
			Src: rand.NewSource(seed),
		})
	}
	init.Initialize(d.actorWeights)
	d.targetActorWeights.Copy(d.actorWeights)

	return d, nil
}

// newDeterministic returns a Deterministic with zero weights, identity
// features and unit action bounds
func newDeterministic(c Config, seed uint64, features,
	actionDims int) (*Deterministic, error) {
	noise, err := c.Noise.CreateNoise(actionDims, seed)
	if err != nil {
		return nil, err
	}

	criticLen := features + actionDims*(1+features)
	scale := mat.NewVecDense(features, nil)
	for i := 0; i < features; i++ {
		scale.SetVec(i, 1)
	}
	low, high := mat.NewVecDense(actionDims, nil),
		mat.NewVecDense(actionDims, nil)
	for i := 0; i < actionDims; i++ {
		low.SetVec(i, -1)
		high.SetVec(i, 1)
	}

	return &Deterministic{
		config:              c,
		seed:                seed,
		actorWeights:        mat.NewDense(actionDims, features, nil),
		actorBias:           mat.NewVecDense(actionDims, nil),
		criticWeights:       mat.NewVecDense(criticLen, nil),
		targetActorWeights:  mat.NewDense(actionDims, features, nil),
		targetActorBias:     mat.NewVecDense(actionDims, nil),
		targetCriticWeights: mat.NewVecDense(criticLen, nil),
		scale:               scale,
		shift:               mat.NewVecDense(features, nil),
		low:                 low,
		high:                high,
		noise:               noise,
		features:            features,
		actionDims:          actionDims,
	}, nil
}

// featurize returns the features φ(s) of an observation
func (d *Deterministic) featurize(state mat.Vector) *mat.VecDense {
	phi := mat.NewVecDense(d.features, nil)
	phi.MulElemVec(d.scale, state)
	phi.AddVec(phi, d.shift)
	return phi
}

// preActivation returns Wφ + b before clipping to the action bounds
func preActivation(w *mat.Dense, b *mat.VecDense, phi mat.Vector) *mat.VecDense {
	a := mat.NewVecDense(b.Len(), nil)
	a.MulVec(w, phi)
	a.AddVec(a, b)
	return a
}

// act returns the action of the actor with the given weights
func (d *Deterministic) act(w *mat.Dense, b *mat.VecDense,
	phi mat.Vector) *mat.VecDense {
	a := preActivation(w, b, phi)
	matutils.VecClip(a, d.low, d.high)
	return a
}

// criticFeatures returns the critic features [φ, a, a⊗φ]
func (d *Deterministic) criticFeatures(phi, action mat.Vector) *mat.VecDense {
	x := mat.NewVecDense(d.criticWeights.Len(), nil)
	for l := 0; l < d.features; l++ {
		x.SetVec(l, phi.AtVec(l))
	}
	for j := 0; j < d.actionDims; j++ {
		a := action.AtVec(j)
		x.SetVec(d.features+j, a)

		offset := d.features + d.actionDims + j*d.features
		for l := 0; l < d.features; l++ {
			x.SetVec(offset+l, a*phi.AtVec(l))
		}
	}
	return x
}

// actionGradient returns ∇ₐQ(s, a) of the critic with weights w, which
// does not depend on a
func (d *Deterministic) actionGradient(w *mat.VecDense,
	phi mat.Vector) *mat.VecDense {
	g := mat.NewVecDense(d.actionDims, nil)
	for j := 0; j < d.actionDims; j++ {
		grad := w.AtVec(d.features + j)
		offset := d.features + d.actionDims + j*d.features
		for l := 0; l < d.features; l++ {
			grad += w.AtVec(offset+l) * phi.AtVec(l)
		}
		g.SetVec(j, grad)
	}
	return g
}

// Value returns the learned action value of action in state
func (d *Deterministic) Value(state, action mat.Vector) float64 {
	x := d.criticFeatures(d.featurize(state), action)
	return mat.Dot(d.criticWeights, x) + d.criticBias
}

// Action returns the greedy action of the actor in state
func (d *Deterministic) Action(state mat.Vector) *mat.VecDense {
	return d.act(d.actorWeights, d.actorBias, d.featurize(state))
}

// SelectAction selects an action at the timestep t. In training mode
// noise scaled to the action bounds is added to the actor's action, and
// the noise process is reset on the first step of an episode.
func (d *Deterministic) SelectAction(t ts.TimeStep) *mat.VecDense {
	if t.Observation.Len() != d.features {
		panic(fmt.Sprintf("selectAction: invalid observation size "+
			"\n\twant(%v) \n\thave(%v)", d.features, t.Observation.Len()))
	}
	action := d.Action(t.Observation)
	if d.eval {
		return action
	}

	if t.First() {
		d.noise.Reset()
	}
	noise := d.noise.Sample()
	for j := 0; j < d.actionDims; j++ {
		halfWidth := (d.high.AtVec(j) - d.low.AtVec(j)) / 2
		action.SetVec(j, action.AtVec(j)+halfWidth*noise.AtVec(j))
	}
	matutils.VecClip(action, d.low, d.high)
	return action
}

// Update performs one critic and one actor update on a batch of
// transitions. The actor update uses the updated critic. Action
// dimensions where the actor is saturated at a bound and the gradient
// points further outside are not updated.
func (d *Deterministic) Update(b *expreplay.Batch) (float64, []float64, error) {
	if b.FeatureSize != d.features {
		return 0, nil, fmt.Errorf("update: invalid feature size "+
			"\n\twant(%v) \n\thave(%v)", d.features, b.FeatureSize)
	}
	if b.ActionSize != d.actionDims {
		return 0, nil, fmt.Errorf("update: invalid action size "+
			"\n\twant(%v) \n\thave(%v)", d.actionDims, b.ActionSize)
	}

	n := b.Len()
	if n == 0 {
		return 0, nil, fmt.Errorf("update: empty batch")
	}

	gradW := mat.NewVecDense(d.criticWeights.Len(), nil)
	var gradB, loss float64
	tdErrors := make([]float64, n)
	phis := make([]*mat.VecDense, n)

	for i := 0; i < n; i++ {
		t := b.Transition(i)
		phis[i] = d.featurize(t.State)

		target := t.Reward
		if t.Discount != 0 {
			next := d.featurize(t.NextState)
			nextAction := d.act(d.targetActorWeights, d.targetActorBias, next)
			x := d.criticFeatures(next, nextAction)
			target += t.Discount * (mat.Dot(d.targetCriticWeights, x) +
				d.targetCriticBias)
		}

		x := d.criticFeatures(phis[i], t.Action)
		δ := target - (mat.Dot(d.criticWeights, x) + d.criticBias)
		tdErrors[i] = δ

		w := b.Weights[i]
		loss += w * δ * δ
		gradW.AddScaledVec(gradW, w*δ, x)
		gradB += w * δ
	}

	criticScale := d.config.CriticLearningRate / float64(n)
	d.criticWeights.AddScaledVec(d.criticWeights, criticScale, gradW)
	d.criticBias += criticScale * gradB

	actorGradW := mat.NewDense(d.actionDims, d.features, nil)
	actorGradB := mat.NewVecDense(d.actionDims, nil)
	for i, phi := range phis {
		w := b.Weights[i]
		raw := preActivation(d.actorWeights, d.actorBias, phi)
		g := d.actionGradient(d.criticWeights, phi)

		for j := 0; j < d.actionDims; j++ {
			grad := g.AtVec(j)
			if (raw.AtVec(j) >= d.high.AtVec(j) && grad > 0) ||
				(raw.AtVec(j) <= d.low.AtVec(j) && grad < 0) {
				continue
			}

			row := actorGradW.RawRowView(j)
			for l := 0; l < d.features; l++ {
				row[l] += w * grad * phi.AtVec(l)
			}
			actorGradB.SetVec(j, actorGradB.AtVec(j)+w*grad)
		}
	}

	actorScale := d.config.ActorLearningRate / float64(n)
	actorGradW.Scale(actorScale, actorGradW)
	d.actorWeights.Add(d.actorWeights, actorGradW)
	d.actorBias.AddScaledVec(d.actorBias, actorScale, actorGradB)

	loss /= float64(n)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return loss, tdErrors, fmt.Errorf("update: loss diverged (%v)", loss)
	}
	return loss, tdErrors, nil
}

// SyncTarget sets the target actor and critic weights to
// θ' <- τθ + (1 - τ)θ'
func (d *Deterministic) SyncTarget(tau float64) error {
	if tau <= 0 || tau > 1 {
		return fmt.Errorf("syncTarget: tau must be in (0, 1] \n\thave(%v)",
			tau)
	}
	if tau == 1.0 {
		d.targetActorWeights.Copy(d.actorWeights)
		d.targetActorBias.CopyVec(d.actorBias)
		d.targetCriticWeights.CopyVec(d.criticWeights)
		d.targetCriticBias = d.criticBias
		return nil
	}

	scaled := mat.NewDense(d.actionDims, d.features, nil)
	scaled.Scale(tau, d.actorWeights)
	d.targetActorWeights.Scale(1-tau, d.targetActorWeights)
	d.targetActorWeights.Add(d.targetActorWeights, scaled)

	d.targetActorBias.ScaleVec(1-tau, d.targetActorBias)
	d.targetActorBias.AddScaledVec(d.targetActorBias, tau, d.actorBias)

	d.targetCriticWeights.ScaleVec(1-tau, d.targetCriticWeights)
	d.targetCriticWeights.AddScaledVec(d.targetCriticWeights, tau,
		d.criticWeights)
	d.targetCriticBias = (1-tau)*d.targetCriticBias + tau*d.criticBias
	return nil
}

// Eval sets the agent into evaluation mode
func (d *Deterministic) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *Deterministic) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *Deterministic) IsEval() bool {
	return d.eval
}

// GobEncode implements the gob.GobEncoder interface
func (d *Deterministic) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	values := []interface{}{
		d.config,
		d.seed,
		d.features,
		d.actionDims,
		d.criticBias,
		d.targetCriticBias,
		d.scale,
		d.shift,
		d.low,
		d.high,
		d.actorWeights,
		d.actorBias,
		d.criticWeights,
		d.targetActorWeights,
		d.targetActorBias,
		d.targetCriticWeights,
	}
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("gobEncode: %v", err)
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The noise process
// of the decoded agent is reseeded with its original seed.
func (d *Deterministic) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var c Config
	var seed uint64
	var features, actionDims int
	var criticBias, targetCriticBias float64
	for _, v := range []interface{}{&c, &seed, &features, &actionDims,
		&criticBias, &targetCriticBias} {
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("gobDecode: %v", err)
		}
	}

	decoded, err := newDeterministic(c, seed, features, actionDims)
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	decoded.criticBias = criticBias
	decoded.targetCriticBias = targetCriticBias

	// Matrices can only be unmarshalled into empty receivers
	scale, shift, low, high := &mat.VecDense{}, &mat.VecDense{},
		&mat.VecDense{}, &mat.VecDense{}
	aw, taw := &mat.Dense{}, &mat.Dense{}
	ab, cw, tab, tcw := &mat.VecDense{}, &mat.VecDense{}, &mat.VecDense{},
		&mat.VecDense{}
	for _, v := range []interface{}{scale, shift, low, high, aw, ab, cw, taw,
		tab, tcw} {
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("gobDecode: %v", err)
		}
	}
	decoded.scale, decoded.shift = scale, shift
	decoded.low, decoded.high = low, high
	decoded.actorWeights, decoded.actorBias = aw, ab
	decoded.criticWeights = cw
	decoded.targetActorWeights, decoded.targetActorBias = taw, tab
	decoded.targetCriticWeights = tcw

	*d = *decoded
	return nil
}
