package expreplay

import (
	"errors"
	"fmt"
)

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error so that ExpReplayErrors can be
// inspected with errors.Is
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// ErrInsufficientData is reported when a batch is requested from a
// buffer which holds fewer transitions than the batch size.
var ErrInsufficientData = errors.New("insufficient data in buffer")

// ErrEmptyBuffer is reported when sampling from a buffer with no
// transitions. Any error matching ErrEmptyBuffer also matches
// ErrInsufficientData.
var ErrEmptyBuffer = fmt.Errorf("buffer empty: %w", ErrInsufficientData)

// IsInsufficientSamples returns whether or not an error reports that
// there are insufficient samples in the buffer to sample from the
// buffer.
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

// IsEmptyBuffer returns whether or not an error reports that a
// replay buffer is empty.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, ErrEmptyBuffer)
}
