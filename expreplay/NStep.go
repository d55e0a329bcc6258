package expreplay

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/gorl/timestep"
	"gonum.org/v1/gonum/mat"
)

// NStep wraps an ExperienceReplayer so that it stores n-step
// transitions. Transitions passed to Add are queued until n of them
// have accumulated, at which point a single transition
//
//	(s_t, a_t, Σ_{k<n} γ^k r_{t+k}, γ^n, s_{t+n})
//
// is added to the wrapped buffer and the oldest queued transition is
// dropped. When a terminal transition is added, every remaining window
// is flushed as a shorter, terminal, n-step transition.
//
// Sampling and all other operations are handled by the wrapped buffer.
type NStep struct {
	ExperienceReplayer

	n      int
	gamma  float64
	window []timestep.Transition
}

// NewNStep returns a new NStep buffer which adds n-step transitions to
// buffer using discount factor gamma
func NewNStep(buffer ExperienceReplayer, n int,
	gamma float64) (*NStep, error) {
	if buffer == nil {
		return nil, fmt.Errorf("newNStep: buffer must not be nil")
	}
	if n < 1 {
		return nil, fmt.Errorf("newNStep: n must be positive "+
			"\n\twant(>0) \n\thave(%v)", n)
	}
	if gamma < 0 || gamma > 1 || math.IsNaN(gamma) {
		return nil, fmt.Errorf("newNStep: gamma must be in [0, 1] "+
			"\n\thave(%v)", gamma)
	}

	return &NStep{
		ExperienceReplayer: buffer,
		n:                  n,
		gamma:              gamma,
		window:             make([]timestep.Transition, 0, n),
	}, nil
}

// Unwrap returns the wrapped buffer
func (s *NStep) Unwrap() ExperienceReplayer {
	return s.ExperienceReplayer
}

// N returns the number of steps in each stored transition
func (s *NStep) N() int {
	return s.n
}

// Pending returns the number of transitions queued but not yet added
// to the wrapped buffer
func (s *NStep) Pending() int {
	return len(s.window)
}

// Add queues a transition and adds an n-step transition to the wrapped
// buffer if enough transitions are queued
func (s *NStep) Add(t timestep.Transition) error {
	if t.State == nil || t.NextState == nil || t.Action == nil {
		return fmt.Errorf("add: transition has nil vectors")
	}
	s.window = append(s.window, clone(t))

	if t.Done {
		for len(s.window) > 0 {
			if err := s.ExperienceReplayer.Add(s.accumulate()); err != nil {
				s.window = s.window[:0]
				return fmt.Errorf("add: %w", err)
			}
			s.window = s.window[1:]
		}
		s.window = make([]timestep.Transition, 0, s.n)
		return nil
	}

	if len(s.window) == s.n {
		if err := s.ExperienceReplayer.Add(s.accumulate()); err != nil {
			return fmt.Errorf("add: %w", err)
		}
		s.window = s.window[1:]
	}
	return nil
}

// Reset drops all queued transitions without adding them to the
// wrapped buffer
func (s *NStep) Reset() {
	s.window = s.window[:0]
}

// accumulate returns the n-step transition starting at the first
// queued transition and ending at the last queued transition
func (s *NStep) accumulate() timestep.Transition {
	first := s.window[0]
	last := s.window[len(s.window)-1]

	reward := 0.0
	discount := 1.0
	for _, t := range s.window {
		reward += discount * t.Reward
		discount *= s.gamma
	}
	if last.Done {
		discount = 0.0
	}

	return timestep.Transition{
		State:     first.State,
		Action:    first.Action,
		Reward:    reward,
		Discount:  discount,
		NextState: last.NextState,
		Done:      last.Done,
	}
}

// clone returns a copy of a transition which shares no data with t
func clone(t timestep.Transition) timestep.Transition {
	c := t
	c.State = mat.VecDenseCopyOf(t.State)
	c.Action = mat.VecDenseCopyOf(t.Action)
	c.NextState = mat.VecDenseCopyOf(t.NextState)
	return c
}
