package expreplay

import "fmt"

// Type describes the method used to sample from a buffer
type Type string

const (
	UniformType     Type = "uniform"
	PrioritizedType Type = "prioritized"
)

// DefaultEps is the constant added to the magnitude of TD errors
// before computing priorities
const DefaultEps float64 = 1e-6

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	Type     Type `json:"type" mapstructure:"type"`
	Capacity int  `json:"capacity" mapstructure:"capacity"`

	// Alpha and Eps are only used by prioritized buffers
	Alpha float64 `json:"alpha" mapstructure:"alpha"`
	Eps   float64 `json:"eps" mapstructure:"eps"`

	// NStep > 1 wraps the buffer in an NStep buffer which uses the
	// discount factor Gamma
	NStep int     `json:"n_step" mapstructure:"n_step"`
	Gamma float64 `json:"gamma" mapstructure:"gamma"`
}

// Validate returns an error describing why a Config is invalid, or nil
// if the Config is valid
func (c Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("validate: capacity must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.Capacity)
	}
	switch c.Type {
	case UniformType:
	case PrioritizedType:
		if c.Alpha < 0 {
			return fmt.Errorf("validate: alpha must be non-negative "+
				"\n\twant(>=0) \n\thave(%v)", c.Alpha)
		}
		if c.Eps < 0 {
			return fmt.Errorf("validate: eps must be non-negative "+
				"\n\twant(>=0) \n\thave(%v)", c.Eps)
		}
	default:
		return fmt.Errorf("validate: no such buffer type %q", c.Type)
	}
	if c.NStep < 0 {
		return fmt.Errorf("validate: n-step must be non-negative "+
			"\n\twant(>=0) \n\thave(%v)", c.NStep)
	}
	if c.NStep > 1 && (c.Gamma < 0 || c.Gamma > 1) {
		return fmt.Errorf("validate: gamma must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}
	return nil
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	var buffer ExperienceReplayer
	var err error
	switch c.Type {
	case PrioritizedType:
		eps := c.Eps
		if eps == 0 {
			eps = DefaultEps
		}
		buffer, err = NewPrioritized(c.Capacity, featureSize, actionSize,
			c.Alpha, eps, seed)
	default:
		buffer, err = New(c.Capacity, featureSize, actionSize, seed)
	}
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	if c.NStep > 1 {
		nstep, err := NewNStep(buffer, c.NStep, c.Gamma)
		if err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
		return nstep, nil
	}
	return buffer, nil
}
