package summary

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Scalar("loss", 0.5, 1)
	m.Scalar("loss", 0.25, 2)
	m.Scalar("epsilon", 1.0, 1)

	assert.Equal(t, []string{"epsilon", "loss"}, m.Tags())
	assert.Equal(t, []Point{{1, 0.5}, {2, 0.25}}, m.Scalars("loss"))

	last, ok := m.Last("loss")
	require.True(t, ok)
	assert.Equal(t, Point{2, 0.25}, last)

	_, ok = m.Last("beta")
	assert.False(t, ok)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf), zerolog.InfoLevel)
	Multi{l, Discard{}}.Scalar("reward", 200, 1000)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "reward", event["tag"])
	assert.Equal(t, 200.0, event["value"])
	assert.Equal(t, 1000.0, event["step"])
	assert.Equal(t, "info", event["level"])
	assert.Equal(t, "summary", event["component"])
}
