package tracker

import (
	ts "github.com/samuelfneumann/gorl/timestep"
)

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment.
// Note that an episode must finish for this Tracker to save its data.
type EpisodeLength struct {
	currentLength  int
	episodeLengths []int
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength Tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track tracks the episode lengths in an experiment. The length of an
// episode is the number of timesteps tracked after its first timestep.
func (e *EpisodeLength) Track(t ts.TimeStep) {
	if t.First() {
		e.currentLength = 0
		return
	}

	e.currentLength++
	if t.Last() {
		e.episodeLengths = append(e.episodeLengths, e.currentLength)
		e.currentLength = 0
	}
}

// Lengths returns the lengths of all finished episodes
func (e *EpisodeLength) Lengths() []int {
	return e.episodeLengths
}

// Save saves the data tracked by the EpisodeLength Tracker to disk.
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.episodeLengths)
}
