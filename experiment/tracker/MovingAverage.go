package tracker

import (
	"fmt"

	ts "github.com/samuelfneumann/gorl/timestep"
)

// MovingAverage tracks the mean return over the most recent episodes.
// After each finished episode the mean over the last window episodes,
// or all episodes if fewer have finished, is cached and saved.
type MovingAverage struct {
	ret      *Return
	window   int
	averages []float64
	filename string
}

// NewMovingAverage returns a new MovingAverage Tracker over window
// episodes
func NewMovingAverage(window int, filename string) *MovingAverage {
	if window < 1 {
		panic(fmt.Sprintf("newMovingAverage: window must be positive "+
			"\n\twant(>0) \n\thave(%v)", window))
	}
	return &MovingAverage{
		ret:      NewReturn(""),
		window:   window,
		filename: filename,
	}
}

// Track tracks the rewards seen on a timestep
func (m *MovingAverage) Track(step ts.TimeStep) {
	m.ret.Track(step)
	if step.Last() {
		m.averages = append(m.averages, m.Value())
	}
}

// Value returns the mean return over the most recent finished episodes,
// or 0 if no episode has finished
func (m *MovingAverage) Value() float64 {
	returns := m.ret.Returns()
	if len(returns) == 0 {
		return 0.0
	}
	if len(returns) > m.window {
		returns = returns[len(returns)-m.window:]
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// Averages returns the moving average after each finished episode
func (m *MovingAverage) Averages() []float64 {
	return m.averages
}

// Save saves the data tracked by the MovingAverage Tracker to disk
func (m *MovingAverage) Save() error {
	return save(m.filename, m.averages)
}
