package deepq

import (
	"fmt"

	"github.com/samuelfneumann/gorl/agent"
	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/initwfn"
	"github.com/samuelfneumann/gorl/network"
	"github.com/samuelfneumann/gorl/schedule"
	"github.com/samuelfneumann/gorl/solver"
)

func init() {
	agent.Register(agent.DeepQ, Config{})
}

// Config implements a configuration for a DeepQ agent
type Config struct {
	// Hidden layer sizes, whether each hidden layer has a bias unit, and
	// the activation of each hidden layer
	Layers      []int    `json:"layers" mapstructure:"layers"`
	Biases      []bool   `json:"biases" mapstructure:"biases"`
	Activations []string `json:"activations" mapstructure:"activations"`

	InitWFn initwfn.Config `json:"init" mapstructure:"init"`
	Solver  solver.Config  `json:"solver" mapstructure:"solver"`

	// BatchSize is the number of transitions in each update and must
	// match the batch size the training loop samples
	BatchSize int `json:"batch_size" mapstructure:"batch_size"`

	Epsilon     schedule.Config `json:"epsilon" mapstructure:"epsilon"`
	EvalEpsilon float64         `json:"eval_epsilon" mapstructure:"eval_epsilon"`

	// Double uses the learned network to select the greedy next action
	// and the target network to evaluate it
	Double bool `json:"double" mapstructure:"double"`
}

// Default returns the default DeepQ configuration
func (Config) Default() agent.Config {
	return Config{
		Layers:      []int{64, 64},
		Biases:      []bool{true, true},
		Activations: []string{"relu", "relu"},
		InitWFn:     initwfn.Default(),
		Solver:      solver.DefaultAdam(1e-3),
		BatchSize:   32,
		Epsilon: schedule.Config{
			Type:       schedule.LinearType,
			Start:      1.0,
			End:        0.02,
			DecaySteps: 10_000,
		},
		EvalEpsilon: 0.05,
		Double:      true,
	}
}

// Type returns the type of the configuration
func (c Config) Type() agent.Type {
	return agent.DeepQ
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if len(c.Layers) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases \n\twant(%v)"+
			"\n\thave(%v)", len(c.Layers), len(c.Biases))
	}

	if len(c.Layers) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations "+
			"\n\twant(%v) \n\thave(%v)", len(c.Layers), len(c.Activations))
	}

	for i, size := range c.Layers {
		if size < 1 {
			return fmt.Errorf("validate: layer %v must have a positive "+
				"number of units \n\thave(%v)", i, size)
		}
	}

	if _, err := c.activations(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if err := c.InitWFn.Validate(); err != nil {
		return fmt.Errorf("validate: init: %w", err)
	}

	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("validate: solver: %w", err)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.BatchSize)
	}

	if err := c.Epsilon.Validate(); err != nil {
		return fmt.Errorf("validate: epsilon: %w", err)
	}

	if c.EvalEpsilon < 0 || c.EvalEpsilon > 1 {
		return fmt.Errorf("validate: evaluation epsilon must be in [0, 1] "+
			"\n\thave(%v)", c.EvalEpsilon)
	}
	return nil
}

// activations returns the hidden layer activations named by the Config
func (c Config) activations() ([]*network.Activation, error) {
	acts := make([]*network.Activation, len(c.Activations))
	for i, name := range c.Activations {
		a, err := network.ActivationFromName(name)
		if err != nil {
			return nil, err
		}
		acts[i] = a
	}
	return acts, nil
}

// CreateAgent creates a new DeepQ agent based on the configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	d, err := New(e, c, seed)
	if err != nil {
		return nil, err
	}
	return d, nil
}
