package exploration

import (
	"fmt"

	env "github.com/samuelfneumann/gorl/environment"
)

// Type describes the different types of exploration Policies
type Type string

const (
	UniformType           Type = "uniform"
	OrnsteinUhlenbeckType Type = "ou"
	GaussianType          Type = "gaussian"
)

// Config describes an exploration Policy. Discrete action spaces only
// support UniformType.
type Config struct {
	Type  Type    `json:"type" mapstructure:"type"`
	Sigma float64 `json:"sigma" mapstructure:"sigma"`

	// Theta and Dt are only used by Ornstein-Uhlenbeck noise, a Dt of 0
	// is treated as 1
	Theta float64 `json:"theta" mapstructure:"theta"`
	Dt    float64 `json:"dt" mapstructure:"dt"`
}

// Create returns the Policy described by the Config for actions
// described by spec
func (c Config) Create(spec env.Spec, seed uint64) (Policy, error) {
	if c.Type == "" || c.Type == UniformType {
		u, err := NewUniform(spec, seed)
		if err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
		return u, nil
	}
	if spec.Cardinality == env.Discrete {
		return nil, fmt.Errorf("create: %v exploration requires continuous "+
			"actions", c.Type)
	}

	noise, err := c.CreateNoise(spec.Len(), seed)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	n, err := NewNoisy(spec, noise)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	return n, nil
}

// CreateNoise returns the Noise described by the Config over vectors of
// length size. Only OrnsteinUhlenbeckType and GaussianType describe
// Noise.
func (c Config) CreateNoise(size int, seed uint64) (Noise, error) {
	switch c.Type {
	case OrnsteinUhlenbeckType:
		dt := c.Dt
		if dt == 0 {
			dt = 1
		}
		o, err := NewOrnsteinUhlenbeck(size, c.Theta, 0, c.Sigma, dt, seed)
		if err != nil {
			return nil, fmt.Errorf("createNoise: %w", err)
		}
		return o, nil

	case GaussianType:
		g, err := NewGaussian(size, c.Sigma, seed)
		if err != nil {
			return nil, fmt.Errorf("createNoise: %w", err)
		}
		return g, nil
	}
	return nil, fmt.Errorf("createNoise: %q is not a noise type", c.Type)
}
