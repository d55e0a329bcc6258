package progressbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, 10, 4)

	p.Increment()
	assert.Equal(t, 0.25, p.Progress())

	p.Set(10)
	assert.Equal(t, 1.0, p.Progress())
	assert.Equal(t, 10, strings.Count(p.String(), "█"))

	p.Display()
	p.Close()
	assert.Contains(t, out.String(), "100.00%")
}
