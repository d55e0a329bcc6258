package initwfn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestCreate(t *testing.T) {
	init, err := Config{Type: Constant, Value: 2.5}.Create()
	require.NoError(t, err)

	values := init(tensor.Float64, 2, 3).([]float64)
	assert.Len(t, values, 6)
	for _, v := range values {
		assert.Equal(t, 2.5, v)
	}

	init, err = Default().Create()
	require.NoError(t, err)
	assert.Len(t, init(tensor.Float64, 4, 4).([]float64), 16)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Config{Type: Zeroes}.Validate())
	assert.Error(t, Config{Type: HeN}.Validate())
	assert.Error(t, Config{Type: Gaussian}.Validate())
	assert.Error(t, Config{Type: Uniform, Low: 1, High: 1}.Validate())
	assert.Error(t, Config{Type: "orthogonal"}.Validate())
}
