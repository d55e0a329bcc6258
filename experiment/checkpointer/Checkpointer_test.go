package checkpointer

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter is a gob serializable object
type counter struct {
	n int
}

func (c *counter) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(c.n)
	return buf.Bytes(), err
}

func (c *counter) GobDecode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(&c.n)
}

func TestFilenameEnumerator(t *testing.T) {
	next := FilenameEnumerator(0, "dir/agent", ".bin")
	assert.Equal(t, "dir/agent1.bin", next())
	assert.Equal(t, "dir/agent2.bin", next())

	timer := FileTimer("agent", ".bin")
	name := timer()
	assert.True(t, strings.HasPrefix(name, "agent-"))
	assert.True(t, strings.HasSuffix(name, ".bin"))
}

func TestNStep(t *testing.T) {
	dir := t.TempDir()
	c := &counter{n: 1}
	cp, err := NewNStep(10, c, FilenameEnumerator(0,
		filepath.Join(dir, "ckpt"), ".bin"))
	require.NoError(t, err)

	for step := 0; step <= 25; step++ {
		c.n = step
		require.NoError(t, cp.Checkpoint(step))
	}

	restored := &counter{}
	require.NoError(t, Load(filepath.Join(dir, "ckpt1.bin"), restored))
	assert.Equal(t, 10, restored.n)
	require.NoError(t, Load(filepath.Join(dir, "ckpt2.bin"), restored))
	assert.Equal(t, 20, restored.n)
	assert.Error(t, Load(filepath.Join(dir, "ckpt3.bin"), restored))

	_, err = NewNStep(0, c, FileTimer("x", ".bin"))
	assert.Error(t, err)
}
