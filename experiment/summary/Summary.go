// Package summary implements summary writers, which record scalar
// metrics of a training run keyed by the global step.
package summary

import (
	"sort"

	"github.com/rs/zerolog"
)

// Writer records scalar metrics. Writes are fire-and-forget.
type Writer interface {
	Scalar(tag string, value float64, step int)
}

// Logger writes each scalar as a structured zerolog event
type Logger struct {
	log   zerolog.Logger
	level zerolog.Level
}

// NewLogger returns a Writer which logs scalars at the given level
func NewLogger(log zerolog.Logger, level zerolog.Level) *Logger {
	return &Logger{
		log:   log.With().Str("component", "summary").Logger(),
		level: level,
	}
}

// Scalar implements the Writer interface
func (l *Logger) Scalar(tag string, value float64, step int) {
	l.log.WithLevel(l.level).
		Str("tag", tag).
		Float64("value", value).
		Int("step", step).
		Msg("scalar")
}

// Point is a single scalar recorded by Memory
type Point struct {
	Step  int
	Value float64
}

// Memory records scalars in memory
type Memory struct {
	scalars map[string][]Point
}

// NewMemory returns a new, empty Memory
func NewMemory() *Memory {
	return &Memory{scalars: make(map[string][]Point)}
}

// Scalar implements the Writer interface
func (m *Memory) Scalar(tag string, value float64, step int) {
	m.scalars[tag] = append(m.scalars[tag], Point{Step: step, Value: value})
}

// Scalars returns the points recorded for a tag in the order they were
// written
func (m *Memory) Scalars(tag string) []Point {
	return m.scalars[tag]
}

// Last returns the most recent point recorded for a tag
func (m *Memory) Last(tag string) (Point, bool) {
	points := m.scalars[tag]
	if len(points) == 0 {
		return Point{}, false
	}
	return points[len(points)-1], true
}

// Tags returns the recorded tags in sorted order
func (m *Memory) Tags() []string {
	tags := make([]string, 0, len(m.scalars))
	for tag := range m.scalars {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Discard drops all scalars
type Discard struct{}

// Scalar implements the Writer interface
func (Discard) Scalar(string, float64, int) {}

// Multi writes scalars to each of its Writers
type Multi []Writer

// Scalar implements the Writer interface
func (m Multi) Scalar(tag string, value float64, step int) {
	for _, w := range m {
		w.Scalar(tag, value, step)
	}
}
