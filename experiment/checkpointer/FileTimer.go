package checkpointer

import (
	"fmt"
	"path/filepath"
	"time"
)

// timeLayout sorts lexically in the order checkpoints were taken
const timeLayout = "20060102T150405.000000000"

// FileTimer returns a function which returns filename suffixed with the
// current UTC time, for example agent-20210818T181143.000000000.bin
func FileTimer(filename, extension string) func() string {
	name := filepath.Clean(filename)
	return func() string {
		return fmt.Sprintf("%v-%v%v", name,
			time.Now().UTC().Format(timeLayout), extension)
	}
}
