package actorcritic

import (
	"fmt"

	"github.com/samuelfneumann/gorl/agent"
	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/exploration"
)

func init() {
	agent.Register(agent.LinearDDPG, Config{})
}

// Config implements a configuration for a linear deterministic
// actor-critic agent
type Config struct {
	ActorLearningRate  float64 `json:"actor_learning_rate" mapstructure:"actor_learning_rate"`
	CriticLearningRate float64 `json:"critic_learning_rate" mapstructure:"critic_learning_rate"`

	// Noise is added to the actor's action in training mode. Its
	// standard deviation is relative to half the width of the action
	// bounds.
	Noise exploration.Config `json:"noise" mapstructure:"noise"`

	// InitScale is the half-width of the uniform distribution actor
	// weights are initialized from, 0 initializes all weights to 0
	InitScale float64 `json:"init_scale" mapstructure:"init_scale"`
}

// Default returns the default linear deterministic actor-critic
// configuration
func (Config) Default() agent.Config {
	return Config{
		ActorLearningRate:  1e-3,
		CriticLearningRate: 1e-2,
		Noise: exploration.Config{
			Type:  exploration.OrnsteinUhlenbeckType,
			Sigma: 0.2,
			Theta: 0.15,
		},
	}
}

// Type returns the type of the configuration
func (c Config) Type() agent.Type {
	return agent.LinearDDPG
}

// Validate checks a Config to ensure it is a valid configuration of a
// linear deterministic actor-critic agent.
func (c Config) Validate() error {
	if c.ActorLearningRate <= 0 {
		return fmt.Errorf("validate: actor learning rate must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.ActorLearningRate)
	}
	if c.CriticLearningRate <= 0 {
		return fmt.Errorf("validate: critic learning rate must be "+
			"positive \n\twant(>0) \n\thave(%v)", c.CriticLearningRate)
	}

	if _, err := c.Noise.CreateNoise(1, 0); err != nil {
		return fmt.Errorf("validate: noise: %w", err)
	}

	if c.InitScale < 0 {
		return fmt.Errorf("validate: init scale must be non-negative "+
			"\n\thave(%v)", c.InitScale)
	}
	return nil
}

// CreateAgent creates a new linear deterministic actor-critic agent
// based on the configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	d, err := New(e, c, seed)
	if err != nil {
		return nil, err
	}
	return d, nil
}
