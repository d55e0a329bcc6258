// Package solver describes Gorgonia Solvers with flat configurations
// so that they can be read from JSON or YAML configuration files and
// command line flags.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "adam"
	RMSProp Type = "rmsprop"
	Vanilla Type = "vanilla"
)

// Config describes a Gorgonia Solver. Fields which a solver type does
// not use are ignored, and zero values are replaced by the defaults of
// that solver type.
type Config struct {
	Type     Type    `json:"type" mapstructure:"type"`
	StepSize float64 `json:"step_size" mapstructure:"step_size"`

	// Epsilon is the smoothing factor of Adam and RMSProp
	Epsilon float64 `json:"epsilon" mapstructure:"epsilon"`
	Beta1   float64 `json:"beta1" mapstructure:"beta1"`
	Beta2   float64 `json:"beta2" mapstructure:"beta2"`
	Rho     float64 `json:"rho" mapstructure:"rho"`

	// Clip clips gradients to [-Clip, Clip], a Clip <= 0 disables
	// clipping
	Clip float64 `json:"clip" mapstructure:"clip"`
}

// DefaultAdam returns the Config of an Adam solver with default
// hyperparameters
func DefaultAdam(stepSize float64) Config {
	return Config{
		Type:     Adam,
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
	}
}

// Validate returns an error describing whether or not the Config is
// valid
func (c Config) Validate() error {
	switch c.Type {
	case Adam, RMSProp, Vanilla:
	default:
		return fmt.Errorf("validate: no such solver type %q", c.Type)
	}

	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.StepSize)
	}

	if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
		return fmt.Errorf("validate: adam betas must be in [0, 1) "+
			"\n\thave(%v, %v)", c.Beta1, c.Beta2)
	}

	if c.Rho < 0 || c.Rho >= 1 {
		return fmt.Errorf("validate: rho must be in [0, 1) \n\thave(%v)",
			c.Rho)
	}

	if c.Epsilon < 0 {
		return fmt.Errorf("validate: epsilon must be non-negative "+
			"\n\thave(%v)", c.Epsilon)
	}
	return nil
}

// Create returns the Gorgonia Solver described by the Config. Gradients
// are averaged over batchSize samples.
func (c Config) Create(batchSize int) (G.Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("create: batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", batchSize)
	}

	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithBatchSize(float64(batchSize)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}

	switch c.Type {
	case Adam:
		opts = append(opts,
			G.WithEps(orDefault(c.Epsilon, 1e-8)),
			G.WithBeta1(orDefault(c.Beta1, 0.9)),
			G.WithBeta2(orDefault(c.Beta2, 0.999)),
		)
		return G.NewAdamSolver(opts...), nil

	case RMSProp:
		// Only the default η of Gorgonia is supported
		opts = append(opts,
			G.WithEps(orDefault(c.Epsilon, 1e-8)),
			G.WithRho(orDefault(c.Rho, 0.999)),
		)
		return G.NewRMSPropSolver(opts...), nil

	default:
		return G.NewVanillaSolver(opts...), nil
	}
}

func orDefault(value, def float64) float64 {
	if value == 0 {
		return def
	}
	return value
}
