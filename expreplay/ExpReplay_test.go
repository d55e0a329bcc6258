package expreplay

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/gorl/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// transition returns a transition whose data is derived from v so that
// transitions can be told apart after sampling
func transition(v float64, done bool) timestep.Transition {
	discount := 0.99
	if done {
		discount = 0.0
	}
	return timestep.Transition{
		State:     mat.NewVecDense(2, []float64{v, -v}),
		Action:    mat.NewVecDense(1, []float64{v}),
		Reward:    v,
		Discount:  discount,
		NextState: mat.NewVecDense(2, []float64{v + 1, -v - 1}),
		Done:      done,
	}
}

func TestUniformAddThenSample(t *testing.T) {
	buffer, err := New(10, 2, 1, 1)
	require.NoError(t, err)

	tr := transition(3.0, false)
	require.NoError(t, buffer.Add(tr))

	batch, err := buffer.Sample(1)
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.True(t, tr.Equal(batch.Transition(0)))
	assert.Equal(t, []float64{1.0}, batch.Weights)
	assert.Equal(t, []int{0}, batch.Indices)
}

func TestUniformOverwritesOldest(t *testing.T) {
	buffer, err := New(3, 2, 1, 1)
	require.NoError(t, err)

	for _, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, buffer.Add(transition(v, false)))
	}
	require.Equal(t, 3, buffer.Len())
	require.Equal(t, 3, buffer.Capacity())

	rewards := make([]float64, 0, buffer.Len())
	for i := 0; i < buffer.Len(); i++ {
		rewards = append(rewards, buffer.At(i).Reward)
	}
	assert.ElementsMatch(t, []float64{2, 3, 4}, rewards)

	// Every sample must come from the three most recent transitions
	for n := 0; n < 50; n++ {
		batch, err := buffer.Sample(3)
		require.NoError(t, err)
		for i := 0; i < batch.Len(); i++ {
			assert.Contains(t, []float64{2, 3, 4}, batch.Rewards[i])
			assert.True(t, transition(batch.Rewards[i], false).Equal(
				batch.Transition(i)))
		}
	}
}

func TestUniformSampleErrors(t *testing.T) {
	buffer, err := New(5, 2, 1, 1)
	require.NoError(t, err)

	_, err = buffer.Sample(1)
	require.Error(t, err)
	assert.True(t, IsEmptyBuffer(err))
	assert.True(t, errors.Is(err, ErrInsufficientData))

	require.NoError(t, buffer.Add(transition(1, false)))
	_, err = buffer.Sample(2)
	require.Error(t, err)
	assert.True(t, IsInsufficientSamples(err))
	assert.False(t, IsEmptyBuffer(err))

	var replayErr *ExpReplayError
	assert.True(t, errors.As(err, &replayErr))
	assert.Equal(t, "sample", replayErr.Op)

	_, err = buffer.Sample(0)
	assert.Error(t, err)
	assert.False(t, IsInsufficientSamples(err))
}

func TestAddInvalidSize(t *testing.T) {
	buffer, err := New(5, 3, 1, 1)
	require.NoError(t, err)
	assert.Error(t, buffer.Add(transition(1, false)))
	assert.Equal(t, 0, buffer.Len())

	_, err = New(0, 3, 1, 1)
	assert.Error(t, err)
}

func TestBufferCopiesData(t *testing.T) {
	buffer, err := New(5, 2, 1, 1)
	require.NoError(t, err)

	tr := transition(1, false)
	require.NoError(t, buffer.Add(tr))
	tr.State.SetVec(0, 100)

	assert.Equal(t, 1.0, buffer.At(0).State.AtVec(0))
}

func TestSumTreeInvariant(t *testing.T) {
	for _, capacity := range []int{1, 2, 5, 8, 13} {
		tree := NewSumTree(capacity)
		for i := 0; i < 10*capacity; i++ {
			leaf := (i * 7) % capacity
			require.NoError(t, tree.Update(leaf, float64((i*31)%17)/3.0))
			require.True(t, tree.valid(1e-9), "capacity %v", capacity)
		}

		sum := 0.0
		for i := 0; i < capacity; i++ {
			sum += tree.Leaf(i)
		}
		assert.InDelta(t, sum, tree.Total(), 1e-9)
	}
}

func TestSumTreeGetProportional(t *testing.T) {
	tree := NewSumTree(5)
	priorities := []float64{1, 2, 3, 4, 5}
	for i, p := range priorities {
		require.NoError(t, tree.Update(i, p))
	}
	assert.Equal(t, 15.0, tree.Total())
	assert.Equal(t, 5.0, tree.Max())
	assert.Equal(t, 1.0, tree.Min())

	counts := make([]int, 5)
	const step = 0.01
	for prefix := step / 2; prefix < tree.Total(); prefix += step {
		leaf, p := tree.Get(prefix)
		assert.Equal(t, priorities[leaf], p)
		counts[leaf]++
	}
	for i, p := range priorities {
		assert.InDelta(t, p/step, float64(counts[i]), 2)
	}
}

func TestSumTreeSkipsEmptyLeaves(t *testing.T) {
	tree := NewSumTree(4)
	require.NoError(t, tree.Update(1, 2.0))

	for _, prefix := range []float64{-1, 0, 1, 1.999, 2, 10} {
		leaf, p := tree.Get(prefix)
		assert.Equal(t, 1, leaf, "prefix %v", prefix)
		assert.Equal(t, 2.0, p)
	}
	assert.Equal(t, 2.0, tree.Min())
}

func TestSumTreeUpdateErrors(t *testing.T) {
	tree := NewSumTree(3)
	assert.Error(t, tree.Update(3, 1))
	assert.Error(t, tree.Update(-1, 1))
	assert.Error(t, tree.Update(0, -1))
	assert.Error(t, tree.Update(0, math.NaN()))
	assert.Equal(t, 0.0, tree.Total())
}

func TestPrioritizedNewTransitionsGetMaxPriority(t *testing.T) {
	buffer, err := NewPrioritized(4, 2, 1, 0.6, 1e-6, 1)
	require.NoError(t, err)

	require.NoError(t, buffer.Add(transition(1, false)))
	assert.Equal(t, 1.0, buffer.Tree().Leaf(0))

	require.NoError(t, buffer.UpdatePriorities([]int{0}, []float64{4}))
	require.NoError(t, buffer.Add(transition(2, false)))
	assert.InDelta(t, math.Pow(4+1e-6, 0.6), buffer.Tree().Leaf(1), 1e-12)
	assert.True(t, buffer.Tree().valid(1e-12))
}

func TestPrioritizedSamplingFrequency(t *testing.T) {
	buffer, err := NewPrioritized(2, 2, 1, 1.0, 0.0, 7)
	require.NoError(t, err)
	require.NoError(t, buffer.Add(transition(1, false)))
	require.NoError(t, buffer.Add(transition(2, false)))
	require.NoError(t, buffer.UpdatePriorities([]int{0, 1}, []float64{1, 3}))

	counts := make([]int, 2)
	for i := 0; i < 20000; i++ {
		batch, err := buffer.Sample(1)
		require.NoError(t, err)
		counts[batch.Indices[0]]++
	}
	ratio := float64(counts[1]) / float64(counts[0])
	assert.InDelta(t, 3.0, ratio, 0.3)
}

func TestPrioritizedSamplingFrequencyAlpha(t *testing.T) {
	const eps = 1e-6
	buffer, err := NewPrioritized(3, 2, 1, 0.5, eps, 11)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, buffer.Add(transition(float64(i), false)))
	}
	tdErrors := []float64{1, 4, 9}
	require.NoError(t, buffer.UpdatePriorities([]int{0, 1, 2}, tdErrors))

	// Leaves hold (|δ| + eps)^alpha, close to 1:2:3
	want := make([]float64, 3)
	total := 0.0
	for i, delta := range tdErrors {
		want[i] = math.Sqrt(delta + eps)
		total += want[i]
		assert.InDelta(t, want[i], buffer.Tree().Leaf(i), 1e-12)
	}

	const samples = 60000
	counts := make([]int, 3)
	for i := 0; i < samples; i++ {
		batch, err := buffer.Sample(1)
		require.NoError(t, err)
		counts[batch.Indices[0]]++
	}
	for i := range counts {
		assert.InDelta(t, want[i]/total, float64(counts[i])/samples, 0.01,
			"index %v", i)
	}
	assert.InDelta(t, 2.0, float64(counts[1])/float64(counts[0]), 0.1)
	assert.InDelta(t, 3.0, float64(counts[2])/float64(counts[0]), 0.15)
}

func TestPrioritizedWeights(t *testing.T) {
	buffer, err := NewPrioritized(2, 2, 1, 1.0, 0.0, 3)
	require.NoError(t, err)
	require.NoError(t, buffer.Add(transition(1, false)))
	require.NoError(t, buffer.Add(transition(2, false)))
	require.NoError(t, buffer.UpdatePriorities([]int{0, 1}, []float64{1, 3}))

	const beta = 0.5
	probs := []float64{0.25, 0.75}
	for i := 0; i < 100; i++ {
		batch, err := buffer.SampleWithBeta(2, beta)
		require.NoError(t, err)

		raw := make([]float64, batch.Len())
		max := 0.0
		for j, index := range batch.Indices {
			raw[j] = math.Pow(2*probs[index], -beta)
			max = math.Max(max, raw[j])
		}
		for j := range raw {
			assert.InDelta(t, raw[j]/max, batch.Weights[j], 1e-12)
			assert.LessOrEqual(t, batch.Weights[j], 1.0)
		}
	}
}

func TestPrioritizedUpdateErrors(t *testing.T) {
	buffer, err := NewPrioritized(4, 2, 1, 0.6, 1e-6, 1)
	require.NoError(t, err)
	require.NoError(t, buffer.Add(transition(1, false)))

	assert.Error(t, buffer.UpdatePriorities([]int{0, 0}, []float64{1}))
	assert.Error(t, buffer.UpdatePriorities([]int{1}, []float64{1}))
	assert.Error(t, buffer.UpdatePriorities([]int{0}, []float64{math.NaN()}))

	// A batch with any invalid entry leaves every priority unchanged
	assert.Error(t, buffer.UpdatePriorities([]int{0, 3}, []float64{5, 1}))
	assert.Equal(t, 1.0, buffer.Tree().Leaf(0))
	assert.Equal(t, 1.0, buffer.Tree().Total())
	assert.Equal(t, 1.0, buffer.maxPriority)
	assert.Error(t, buffer.UpdatePriorities([]int{0, 0},
		[]float64{5, math.Inf(1)}))
	assert.Equal(t, 1.0, buffer.Tree().Leaf(0))
	assert.Equal(t, 1.0, buffer.maxPriority)

	// Negative TD errors use their magnitude
	require.NoError(t, buffer.UpdatePriorities([]int{0}, []float64{-2}))
	assert.InDelta(t, math.Pow(2+1e-6, 0.6), buffer.Tree().Leaf(0), 1e-12)

	_, err = NewPrioritized(4, 2, 1, -1, 1e-6, 1)
	assert.Error(t, err)
}

func TestPrioritizedSampleErrors(t *testing.T) {
	buffer, err := NewPrioritized(4, 2, 1, 0.6, 1e-6, 1)
	require.NoError(t, err)

	_, err = buffer.Sample(1)
	assert.True(t, IsEmptyBuffer(err))

	require.NoError(t, buffer.Add(transition(1, false)))
	_, err = buffer.Sample(2)
	assert.True(t, IsInsufficientSamples(err))
}

func TestNStepReturns(t *testing.T) {
	inner, err := New(10, 2, 1, 1)
	require.NoError(t, err)
	buffer, err := NewNStep(inner, 3, 0.5)
	require.NoError(t, err)

	require.NoError(t, buffer.Add(transition(1, false)))
	require.NoError(t, buffer.Add(transition(2, false)))
	assert.Equal(t, 0, buffer.Len())
	assert.Equal(t, 2, buffer.Pending())

	require.NoError(t, buffer.Add(transition(3, false)))
	require.Equal(t, 1, buffer.Len())

	got := inner.At(0)
	assert.InDelta(t, 1+0.5*2+0.25*3, got.Reward, 1e-12)
	assert.InDelta(t, 0.125, got.Discount, 1e-12)
	assert.False(t, got.Done)
	assert.True(t, mat.Equal(transition(1, false).State, got.State))
	assert.True(t, mat.Equal(transition(1, false).Action, got.Action))
	assert.True(t, mat.Equal(transition(3, false).NextState, got.NextState))
}

func TestNStepFlushesOnTerminal(t *testing.T) {
	inner, err := New(10, 2, 1, 1)
	require.NoError(t, err)
	buffer, err := NewNStep(inner, 3, 0.5)
	require.NoError(t, err)

	require.NoError(t, buffer.Add(transition(1, false)))
	require.NoError(t, buffer.Add(transition(2, false)))
	require.NoError(t, buffer.Add(transition(3, false)))
	require.NoError(t, buffer.Add(transition(4, true)))

	// One full window from 1, then windows starting at 2, 3, and 4 are
	// flushed on the terminal transition
	require.Equal(t, 4, buffer.Len())
	assert.Equal(t, 0, buffer.Pending())

	want := []struct {
		reward float64
		state  float64
	}{
		{1 + 0.5*2 + 0.25*3, 1},
		{2 + 0.5*3 + 0.25*4, 2},
		{3 + 0.5*4, 3},
		{4, 4},
	}
	for i, w := range want {
		got := inner.At(i)
		assert.InDelta(t, w.reward, got.Reward, 1e-12, "transition %v", i)
		assert.Equal(t, w.state, got.State.AtVec(0))
		if i == 0 {
			assert.False(t, got.Done)
			continue
		}
		assert.True(t, got.Done)
		assert.Equal(t, 0.0, got.Discount)
		assert.True(t, mat.Equal(transition(4, true).NextState,
			got.NextState))
	}
}

func TestNStepOneIsIdentity(t *testing.T) {
	inner, err := New(10, 2, 1, 1)
	require.NoError(t, err)
	buffer, err := NewNStep(inner, 1, 0.9)
	require.NoError(t, err)

	require.NoError(t, buffer.Add(transition(5, false)))
	require.Equal(t, 1, buffer.Len())
	assert.Equal(t, 5.0, inner.At(0).Reward)
	assert.InDelta(t, 0.9, inner.At(0).Discount, 1e-12)
}

func TestAsPrioritizer(t *testing.T) {
	prioritized, err := NewPrioritized(4, 2, 1, 0.6, 1e-6, 1)
	require.NoError(t, err)
	nstep, err := NewNStep(prioritized, 3, 0.99)
	require.NoError(t, err)

	p, ok := AsPrioritizer(nstep)
	require.True(t, ok)
	assert.Same(t, prioritized, p)

	uniform, err := New(4, 2, 1, 1)
	require.NoError(t, err)
	_, ok = AsPrioritizer(uniform)
	assert.False(t, ok)
}

func TestConfigCreate(t *testing.T) {
	buffer, err := Config{Type: UniformType, Capacity: 10}.Create(2, 1, 1)
	require.NoError(t, err)
	assert.IsType(t, &Uniform{}, buffer)

	buffer, err = Config{
		Type:     PrioritizedType,
		Capacity: 10,
		Alpha:    0.6,
		NStep:    3,
		Gamma:    0.99,
	}.Create(2, 1, 1)
	require.NoError(t, err)
	require.IsType(t, &NStep{}, buffer)
	p, ok := AsPrioritizer(buffer)
	require.True(t, ok)
	assert.Equal(t, 10, p.Capacity())

	_, err = Config{Type: "fifo", Capacity: 10}.Create(2, 1, 1)
	assert.Error(t, err)
	_, err = Config{Type: UniformType}.Create(2, 1, 1)
	assert.Error(t, err)
}

func BenchmarkPrioritizedSample(b *testing.B) {
	buffer, err := NewPrioritized(100_000, 4, 1, 0.6, 1e-6, 1)
	if err != nil {
		b.Fatal(err)
	}
	tr := timestep.Transition{
		State:     mat.NewVecDense(4, nil),
		Action:    mat.NewVecDense(1, nil),
		NextState: mat.NewVecDense(4, nil),
	}
	for i := 0; i < buffer.Capacity(); i++ {
		if err := buffer.Add(tr); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := buffer.Sample(32); err != nil {
			b.Fatal(err)
		}
	}
}
