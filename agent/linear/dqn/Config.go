package dqn

import (
	"fmt"

	"github.com/samuelfneumann/gorl/agent"
	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/schedule"
)

func init() {
	agent.Register(agent.LinearDQN, Config{})
}

// Config implements a configuration for a linear DQN agent
type Config struct {
	LearningRate float64 `json:"learning_rate" mapstructure:"learning_rate"`

	// Epsilon anneals the behaviour policy's ε with the agent's step
	Epsilon     schedule.Config `json:"epsilon" mapstructure:"epsilon"`
	EvalEpsilon float64         `json:"eval_epsilon" mapstructure:"eval_epsilon"`

	// Double uses the learned weights to select the greedy next action
	// and the target weights to evaluate it
	Double bool `json:"double" mapstructure:"double"`

	// InitScale is the half-width of the uniform distribution weights
	// are initialized from, 0 initializes all weights to 0
	InitScale float64 `json:"init_scale" mapstructure:"init_scale"`
}

// Default returns the default linear DQN configuration
func (Config) Default() agent.Config {
	return Config{
		LearningRate: 0.01,
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
	return agent.LinearDQN
}

// Validate checks a Config to ensure it is a valid configuration of a
// linear DQN agent.
func (c Config) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.LearningRate)
	}

	if err := c.Epsilon.Validate(); err != nil {
		return fmt.Errorf("validate: epsilon: %w", err)
	}

	if c.EvalEpsilon < 0 || c.EvalEpsilon > 1 {
		return fmt.Errorf("validate: evaluation epsilon must be in [0, 1] "+
			"\n\thave(%v)", c.EvalEpsilon)
	}

	if c.InitScale < 0 {
		return fmt.Errorf("validate: init scale must be non-negative "+
			"\n\thave(%v)", c.InitScale)
	}
	return nil
}

// CreateAgent creates a new linear DQN agent based on the configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	d, err := New(e, c, seed)
	if err != nil {
		return nil, err
	}
	return d, nil
}
