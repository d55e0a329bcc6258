// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. The
// environment implementation is chosen once, when the Config is
// created, and the rest of the program only sees the
// environment.Environment interface. Environment configurations in
// this package are JSON serializable.
package envconfig

import (
	"fmt"
	"strings"

	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/gorl/environment/gridworld"
	"github.com/samuelfneumann/gorl/environment/gym"
	ts "github.com/samuelfneumann/gorl/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Cartpole          EnvName = "Cartpole"
	GridWorld         EnvName = "GridWorld"
	DiscreteGridWorld EnvName = "DiscreteGridWorld"
)

// GymPrefix prefixes environment names which should be created through
// OpenAI Gym, for example "gym:CartPole-v0"
const GymPrefix = "gym:"

// Config implements a specific configuration of a specific environment
type Config struct {
	Environment EnvName `json:"environment" mapstructure:"environment"`

	// EpisodeCutoff is the maximum number of steps in an episode. A
	// value of 0 uses the default of the environment. Gym environments
	// always use their default cutoffs.
	EpisodeCutoff int     `json:"episode_cutoff" mapstructure:"episode_cutoff"`
	Discount      float64 `json:"discount" mapstructure:"discount"`

	// GridWorld configures GridWorld and DiscreteGridWorld
	// environments. If nil, gridworld.DefaultConfig() is used.
	GridWorld *gridworld.Config `json:"gridworld,omitempty" mapstructure:"gridworld"`
}

// DefaultCartpoleCutoff is the episode cutoff of Cartpole when none
// is given
const DefaultCartpoleCutoff int = 200

// Validate returns an error describing why a Config is invalid, or nil
// if the Config is valid
func (c Config) Validate() error {
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1] "+
			"\n\thave(%v)", c.Discount)
	}
	if c.EpisodeCutoff < 0 {
		return fmt.Errorf("validate: episode cutoff must be non-negative "+
			"\n\thave(%v)", c.EpisodeCutoff)
	}

	switch c.Environment {
	case Cartpole, GridWorld, DiscreteGridWorld:
		return nil
	}
	if c.gymName() != "" {
		return nil
	}
	return fmt.Errorf("validate: no such environment %q", c.Environment)
}

// gymName returns the name of the Gym environment described by the
// Config, or "" if the Config does not describe a Gym environment
func (c Config) gymName() string {
	name := string(c.Environment)
	if !strings.HasPrefix(name, GymPrefix) {
		return ""
	}
	return strings.TrimPrefix(name, GymPrefix)
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}

	switch c.Environment {
	case Cartpole:
		return CreateCartpole(c.EpisodeCutoff, seed, c.Discount)

	case GridWorld, DiscreteGridWorld:
		config := gridworld.DefaultConfig()
		if c.GridWorld != nil {
			config = *c.GridWorld
		}
		if c.EpisodeCutoff > 0 {
			config.MaxEpisodeLen = c.EpisodeCutoff
		}

		if c.Environment == DiscreteGridWorld {
			e, step, err := gridworld.NewDiscrete(config, c.Discount)
			if err != nil {
				return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
			}
			return e, step, nil
		}
		e, step, err := gridworld.New(config, c.Discount)
		if err != nil {
			return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		return e, step, nil
	}

	e, step, err := gym.New(c.gymName(), c.Discount, seed)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}
	return e, step, nil
}

// CreateCartpole is a factory for creating the Cartpole environment
// with default physical parameters and the Balance task.
func CreateCartpole(cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep, error) {
	if cutoff == 0 {
		cutoff = DefaultCartpoleCutoff
	}
	task := cartpole.NewBalance(cartpole.NewUniformStarter(seed), cutoff,
		cartpole.FailAngle)

	e, step, err := cartpole.New(task, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createCartpole: %w", err)
	}
	return e, step, nil
}
