package checkpointer

import (
	"encoding/gob"
	"fmt"
)

// nStep implements checkpointing every N steps
type nStep struct {
	interval int
	object   gob.GobEncoder // Object to save

	// filename returns the filename of the file to save the object in.
	//
	// If each serialized object should be saved in a separate file with
	// each file having an incremented number as a suffix (e.g.
	// file1.bin, file2.bin, ..., fileK.bin), then use
	// FilenameEnumerator. If the filename does not matter, use
	// FileTimer. For example:
	//
	// n := NewNStep(10, object, FileTimer("filename", ".bin"))
	filename func() string
	last     string
}

// NewNStep returns a checkpointer that checkpoints every n steps.
func NewNStep(n int, object gob.GobEncoder, filename func() string) (Checkpointer,
	error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive "+
			"\n\twant(>0) \n\thave(%v)", n)
	}
	if object == nil || filename == nil {
		return nil, fmt.Errorf("newNStep: object and filename must be " +
			"non-nil")
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if step is a multiple of the
// checkpointing interval
func (n *nStep) Checkpoint(step int) error {
	if step <= 0 || step%n.interval != 0 {
		return nil
	}
	n.last = n.filename()
	if err := Save(n.last, n.object); err != nil {
		return fmt.Errorf("checkpoint: step %v: %w", step, err)
	}
	return nil
}
