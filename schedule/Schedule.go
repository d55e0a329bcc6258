// Package schedule implements annealing schedules, which map a training
// step to a scalar such as an exploration ε, a prioritized replay β, or
// a learning rate.
package schedule

import (
	"fmt"
	"math"
)

// Schedule maps a training step to a scalar value. Schedules are pure
// functions of the step and hold no state beyond their parameters.
type Schedule interface {
	// Value returns the value of the schedule at a given step
	Value(step int) float64

	// Start returns the value at step 0
	Start() float64

	// End returns the value once the schedule has finished decaying
	End() float64
}

// Linear implements a schedule which linearly interpolates between a
// start and end value over a fixed number of steps, after which it
// stays at the end value.
type Linear struct {
	start      float64
	end        float64
	decaySteps int
}

// NewLinear returns a new Linear schedule
func NewLinear(start, end float64, decaySteps int) (*Linear, error) {
	if decaySteps < 1 {
		return nil, fmt.Errorf("newLinear: decay steps must be positive "+
			"\n\twant(>0) \n\thave(%v)", decaySteps)
	}
	return &Linear{start: start, end: end, decaySteps: decaySteps}, nil
}

// Value returns start - min(step/decaySteps, 1) * (start - end)
func (l *Linear) Value(step int) float64 {
	if step >= l.decaySteps {
		return l.end
	}
	return l.start - fraction(step, l.decaySteps)*(l.start-l.end)
}

// Start returns the starting value of the schedule
func (l *Linear) Start() float64 { return l.start }

// End returns the final value of the schedule
func (l *Linear) End() float64 { return l.end }

// Curved implements a schedule which decays quickly at first and then
// flattens out as it approaches the end value:
//
//	end + (start - end) * (1 - min(step/decaySteps, 1))^power
//
// A power of 1 is equivalent to a Linear schedule.
type Curved struct {
	start      float64
	end        float64
	decaySteps int
	power      float64
}

// NewCurved returns a new Curved schedule
func NewCurved(start, end float64, decaySteps int,
	power float64) (*Curved, error) {
	if decaySteps < 1 {
		return nil, fmt.Errorf("newCurved: decay steps must be positive "+
			"\n\twant(>0) \n\thave(%v)", decaySteps)
	}
	if power <= 0 || math.IsNaN(power) {
		return nil, fmt.Errorf("newCurved: power must be positive "+
			"\n\twant(>0) \n\thave(%v)", power)
	}
	return &Curved{
		start:      start,
		end:        end,
		decaySteps: decaySteps,
		power:      power,
	}, nil
}

// Value returns the value of the schedule at a given step
func (c *Curved) Value(step int) float64 {
	if step >= c.decaySteps {
		return c.end
	}
	remaining := 1.0 - fraction(step, c.decaySteps)
	return c.end + (c.start-c.end)*math.Pow(remaining, c.power)
}

// Start returns the starting value of the schedule
func (c *Curved) Start() float64 { return c.start }

// End returns the final value of the schedule
func (c *Curved) End() float64 { return c.end }

// Constant is a Schedule which never changes
type Constant float64

// Value returns the constant value
func (c Constant) Value(int) float64 { return float64(c) }

// Start returns the constant value
func (c Constant) Start() float64 { return float64(c) }

// End returns the constant value
func (c Constant) End() float64 { return float64(c) }

// fraction returns min(step/decaySteps, 1), treating negative steps
// as step 0
func fraction(step, decaySteps int) float64 {
	if step <= 0 {
		return 0.0
	}
	return math.Min(float64(step)/float64(decaySteps), 1.0)
}
