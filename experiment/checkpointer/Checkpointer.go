// Package checkpointer implements checkpointers, which periodically
// save gob encoded objects, such as agents, during a training run
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Checkpointer checkpoints/saves serializable objects based on the
// global step of a training run
type Checkpointer interface {
	Checkpoint(step int) error
}

// Save gob encodes object and saves it to filename
func Save(filename string, object gob.GobEncoder) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create checkpoint file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(object); err != nil {
		return fmt.Errorf("save: could not encode checkpoint: %w", err)
	}
	return file.Close()
}

// Load decodes the object saved at filename into object
func Load(filename string, object gob.GobDecoder) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open checkpoint file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(object); err != nil {
		return fmt.Errorf("load: could not decode checkpoint: %w", err)
	}
	return nil
}
