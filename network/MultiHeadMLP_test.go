package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func newTestNet(t *testing.T, batch int, init G.InitWFn) NeuralNet {
	t.Helper()
	net, err := NewMultiHeadMLP(3, batch, 2, G.NewGraph(), []int{4},
		[]bool{true}, init, []*Activation{ReLU()})
	require.NoError(t, err)
	return net
}

func predict(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()
	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	require.NoError(t, net.SetInput(input))
	require.NoError(t, vm.RunAll())
	out := append([]float64(nil), net.Output().Data().([]float64)...)
	vm.Reset()
	return out
}

func TestNewMultiHeadMLP(t *testing.T) {
	net := newTestNet(t, 2, G.Ones())
	assert.Equal(t, 3, net.Features())
	assert.Equal(t, 2, net.Outputs())
	assert.Equal(t, 2, net.BatchSize())
	assert.Len(t, net.Learnables(), 4)
	assert.Equal(t, []int{2, 2}, []int(net.Prediction().Shape()))

	// Hidden layer: relu(1+1+1) = 3 per unit, output: 4*3 = 12
	out := predict(t, net, []float64{1, 1, 1, 1, 1, 1})
	assert.Equal(t, []float64{12, 12, 12, 12}, out)

	assert.Error(t, net.SetInput([]float64{1, 2}))

	_, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{4}, []bool{},
		G.Ones(), []*Activation{ReLU()})
	assert.Error(t, err)
}

func TestCloneSetPolyak(t *testing.T) {
	net := newTestNet(t, 1, G.Ones())
	input := []float64{0.5, -1, 2}
	want := predict(t, net, input)

	clone, err := net.CloneWithBatch(3)
	require.NoError(t, err)
	assert.Equal(t, 3, clone.BatchSize())
	out := predict(t, clone, append(append(append([]float64{}, input...),
		input...), input...))
	assert.Equal(t, append(append(want, want...), want...), out)

	zero := newTestNet(t, 1, G.Zeroes())
	require.NoError(t, zero.Polyak(net, 0.5))
	for _, l := range zero.Learnables() {
		for _, w := range l.Value().Data().([]float64) {
			if w != 0 {
				assert.Equal(t, 0.5, w)
			}
		}
	}

	require.NoError(t, zero.Set(net))
	assert.Equal(t, want, predict(t, zero, input))
}

func TestGob(t *testing.T) {
	net, err := NewMultiHeadMLP(2, 1, 3, G.NewGraph(), []int{5, 5},
		[]bool{true, false}, G.GlorotU(1), []*Activation{TanH(), ReLU()})
	require.NoError(t, err)
	input := []float64{0.3, -0.7}
	want := predict(t, net, input)

	data, err := Encode(net)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.InDeltaSlice(t, want, predict(t, decoded, input), 1e-12)
	_, isDense := decoded.Learnables()[0].Value().(*tensor.Dense)
	assert.True(t, isDense)
}

func TestActivationFromName(t *testing.T) {
	a, err := ActivationFromName("tanh")
	require.NoError(t, err)
	assert.Equal(t, "tanh", a.String())

	_, err = ActivationFromName("softplus")
	assert.Error(t, err)
}
