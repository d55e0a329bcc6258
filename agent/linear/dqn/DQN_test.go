package dqn

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gorl/agent"
	"github.com/samuelfneumann/gorl/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/gorl/expreplay"
	"github.com/samuelfneumann/gorl/schedule"
	ts "github.com/samuelfneumann/gorl/timestep"
)

func newTestAgent(t *testing.T, c Config) (*DQN, ts.TimeStep) {
	t.Helper()
	task := cartpole.NewBalance(cartpole.NewUniformStarter(1), 200,
		cartpole.FailAngle)
	e, step, err := cartpole.New(task, 0.99)
	require.NoError(t, err)

	d, err := New(e, c, 1)
	require.NoError(t, err)
	return d, step
}

func testConfig() Config {
	return Config{
		LearningRate: 0.5,
		Epsilon:      schedule.Config{Type: schedule.ConstantType, Start: 0},
	}
}

// singleBatch returns a batch holding a single transition from the
// state e0 with the given action, reward and discount
func singleBatch(action, reward, discount, weight float64) *expreplay.Batch {
	return &expreplay.Batch{
		States:      []float64{1, 0, 0, 0},
		Actions:     []float64{action},
		Rewards:     []float64{reward},
		Discounts:   []float64{discount},
		NextStates:  []float64{0, 1, 0, 0},
		Dones:       []bool{discount == 0},
		Indices:     []int{0},
		Weights:     []float64{weight},
		FeatureSize: 4,
		ActionSize:  1,
	}
}

func TestSelectAction(t *testing.T) {
	c := testConfig()
	c.Epsilon = schedule.Config{Type: schedule.ConstantType, Start: 1.0}
	d, step := newTestAgent(t, c)

	seen := map[float64]bool{}
	for i := 0; i < 200; i++ {
		a := d.SelectAction(step)
		require.Equal(t, 1, a.Len())
		seen[a.AtVec(0)] = true
	}
	assert.Equal(t, map[float64]bool{0: true, 1: true}, seen)
	assert.Equal(t, 1.0, d.Epsilon())

	// Greedy evaluation always selects the largest action value
	d.bias.SetVec(1, 1.0)
	d.SetEvalEpsilon(0)
	d.Eval()
	assert.True(t, d.IsEval())
	for i := 0; i < 20; i++ {
		assert.Equal(t, 1.0, d.SelectAction(step).AtVec(0))
	}
	d.Train()
	assert.False(t, d.IsEval())
}

func TestEpsilonAnnealsWithStep(t *testing.T) {
	c := testConfig()
	c.Epsilon = schedule.Config{
		Type:       schedule.LinearType,
		Start:      1.0,
		End:        0.0,
		DecaySteps: 10,
	}
	d, step := newTestAgent(t, c)
	assert.Equal(t, 1.0, d.Epsilon())

	for i := 0; i < 5; i++ {
		d.SelectAction(step)
	}
	assert.InDelta(t, 0.5, d.Epsilon(), 1e-12)

	d.SetStep(100)
	assert.Equal(t, 0.0, d.Epsilon())
}

func TestUpdate(t *testing.T) {
	d, _ := newTestAgent(t, testConfig())

	loss, tdErrors, err := d.Update(singleBatch(1, 1, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1.0, loss)
	assert.Equal(t, []float64{1.0}, tdErrors)

	values := d.ActionValues(mat.NewVecDense(4, []float64{1, 0, 0, 0}))
	assert.Equal(t, 0.0, values.AtVec(0))
	assert.InDelta(t, 1.0, values.AtVec(1), 1e-12)

	// A zero importance sampling weight results in no update
	before := mat.DenseCopyOf(d.weights)
	_, tdErrors, err = d.Update(singleBatch(0, 3, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{3.0}, tdErrors)
	assert.True(t, mat.Equal(before, d.weights))

	_, _, err = d.Update(singleBatch(2, 1, 0, 1))
	assert.Error(t, err)
}

func TestDoubleBootstrap(t *testing.T) {
	d, _ := newTestAgent(t, testConfig())
	next := mat.NewVecDense(4, []float64{0, 1, 0, 0})

	// Learned weights prefer action 0 in the next state, target weights
	// value action 1 more highly
	d.weights.Set(0, 1, 2)
	d.targetWeights.Set(0, 1, 1)
	d.targetWeights.Set(1, 1, 5)

	assert.Equal(t, 5.0, d.bootstrap(next))
	d.config.Double = true
	assert.Equal(t, 1.0, d.bootstrap(next))

	_, tdErrors, err := d.Update(singleBatch(0, 0, 0.5, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, tdErrors)
}

func TestSyncTarget(t *testing.T) {
	d, _ := newTestAgent(t, testConfig())
	d.weights.Set(0, 0, 4)
	d.bias.SetVec(1, 2)

	require.NoError(t, d.SyncTarget(0.25))
	assert.Equal(t, 1.0, d.targetWeights.At(0, 0))
	assert.Equal(t, 0.5, d.targetBias.AtVec(1))

	require.NoError(t, d.SyncTarget(1))
	assert.True(t, mat.Equal(d.weights, d.targetWeights))
	assert.True(t, mat.Equal(d.bias, d.targetBias))

	assert.Error(t, d.SyncTarget(0))
	assert.Error(t, d.SyncTarget(1.5))
}

func TestGob(t *testing.T) {
	c := testConfig()
	c.InitScale = 0.1
	d, _ := newTestAgent(t, c)
	d.SetStep(42)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(d))

	decoded := &DQN{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))
	assert.True(t, mat.Equal(d.weights, decoded.weights))
	assert.True(t, mat.Equal(d.targetBias, decoded.targetBias))
	assert.Equal(t, 42, decoded.step)
	assert.Equal(t, d.config, decoded.config)
}

func TestConfig(t *testing.T) {
	c, err := agent.NewConfig(agent.LinearDQN)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, agent.LinearDQN, c.Type())
	assert.True(t, c.(*Config).Double)

	bad := testConfig()
	bad.LearningRate = 0
	assert.Error(t, bad.Validate())

	bad = testConfig()
	bad.EvalEpsilon = 2
	assert.Error(t, bad.Validate())

	e, _, err := cartpole.New(cartpole.NewBalance(cartpole.NewUniformStarter(1),
		0, cartpole.FailAngle), 1.0)
	require.NoError(t, err)
	a, err := c.CreateAgent(e, 1)
	require.NoError(t, err)
	_, ok := a.(agent.EGreedy)
	assert.True(t, ok)
}
