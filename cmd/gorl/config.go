package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samuelfneumann/gorl/agent"
	"github.com/samuelfneumann/gorl/environment/envconfig"
	"github.com/samuelfneumann/gorl/experiment"
	"github.com/samuelfneumann/gorl/exploration"
	"github.com/samuelfneumann/gorl/expreplay"
	"github.com/samuelfneumann/gorl/schedule"
)

// envPrefix prefixes environment variables which override flags, for
// example GORL_TRAINING_NUM_FRAMES
const envPrefix = "GORL"

// runConfig is the complete configuration of a training run
type runConfig struct {
	Agent agent.Type `json:"agent" mapstructure:"agent"`

	// AgentConfig overrides fields of the default configuration of
	// Agent
	AgentConfig map[string]interface{} `json:"agent_config" mapstructure:"agent_config"`

	Env         envconfig.Config   `json:"env" mapstructure:"env"`
	Buffer      expreplay.Config   `json:"buffer" mapstructure:"buffer"`
	Prioritized bool               `json:"prioritized" mapstructure:"prioritized"`
	Exploration exploration.Config `json:"exploration" mapstructure:"exploration"`
	Training    experiment.Config  `json:"training" mapstructure:"training"`

	Seed               uint64 `json:"seed" mapstructure:"seed"`
	LogDir             string `json:"log_dir" mapstructure:"log_dir"`
	LogLevel           string `json:"log_level" mapstructure:"log_level"`
	CheckpointInterval int    `json:"checkpoint_interval" mapstructure:"checkpoint_interval"`
	Progress           bool   `json:"progress" mapstructure:"progress"`
}

// defaultRunConfig returns the configuration of a training run when no
// flags, environment variables or config file override it
func defaultRunConfig() runConfig {
	return runConfig{
		Agent: agent.LinearDQN,
		Env: envconfig.Config{
			Environment: envconfig.Cartpole,
			Discount:    0.99,
		},
		Buffer: expreplay.Config{
			Type:     expreplay.UniformType,
			Capacity: 10_000,
			Alpha:    0.6,
			NStep:    1,
			Gamma:    0.99,
		},
		Exploration: exploration.Config{
			Type:  exploration.UniformType,
			Sigma: 0.2,
			Theta: 0.15,
		},
		Training:    experiment.Default(),
		Seed:        1,
		LogDir:      "runs",
		LogLevel:    "info",
	}
}

// binding binds a flag to one or more configuration keys
type binding struct {
	flag string
	keys []string
}

// addFlags registers the flags of the train command, with defaults
// taken from the default run configuration and the default epsilon
// schedule of the agents
func addFlags(flags *pflag.FlagSet) []binding {
	c := defaultRunConfig()
	t := c.Training

	flags.String("config", "", "JSON or YAML configuration file")

	flags.Int("num-frames", t.NumFrames, "Number of environment steps")
	flags.Int("memory-size", c.Buffer.Capacity, "Replay buffer capacity")
	flags.Int("batch-size", t.BatchSize, "Transitions per update")
	flags.Int("learning-start", t.LearningStart,
		"Buffer size at which updates begin")
	flags.Int("train-interval", t.TrainInterval,
		"Environment steps between updates")
	flags.Int("sync-freq", t.SyncFreq, "Steps between hard target syncs")
	flags.String("update-hard-or-soft", string(t.SyncMode),
		"Target sync mode (hard, soft)")
	flags.Float64("soft-update-tau", t.Tau, "Soft target sync rate")

	flags.Float64("epsilon-start", 1.0, "Initial exploration epsilon")
	flags.Float64("epsilon-end", 0.02, "Final exploration epsilon")
	flags.Int("decay-steps", 10_000, "Steps over which epsilon decays")
	flags.String("decay-type", string(schedule.LinearType),
		"Epsilon schedule (linear, curved, constant)")

	flags.String("exploration", string(c.Exploration.Type),
		"Warmup exploration (uniform, ou, gaussian)")
	flags.Float64("exploration-sigma", c.Exploration.Sigma,
		"Standard deviation of ou and gaussian warmup exploration")

	flags.Bool("prioritized", c.Prioritized, "Use prioritized replay")
	flags.Float64("alpha", c.Buffer.Alpha, "Prioritization exponent")
	flags.Float64("beta-start", t.Beta.Start,
		"Initial importance sampling exponent")
	flags.Float64("beta-end", t.Beta.End,
		"Final importance sampling exponent")
	flags.Int("beta-decay-steps", 0,
		"Steps over which beta anneals, 0 anneals over all frames")
	flags.Int("n-step", c.Buffer.NStep, "Steps in each n-step return")
	flags.Float64("gamma", c.Env.Discount, "Discount factor")

	flags.String("env", string(c.Env.Environment),
		"Environment (Cartpole, GridWorld, DiscreteGridWorld, gym:<name>)")
	flags.Int("episode-cutoff", c.Env.EpisodeCutoff,
		"Maximum episode length, 0 uses the environment default")
	flags.String("agent", string(c.Agent), "Agent type")
	flags.Int("eval-interval", t.EvalInterval,
		"Steps between evaluations, 0 disables evaluation")
	flags.Int("eval-episodes", t.EvalEpisodes,
		"Episodes per evaluation")
	flags.Uint64("seed", c.Seed, "Random seed")
	flags.String("log-dir", c.LogDir, "Directory of run output")
	flags.String("log-level", c.LogLevel,
		"Log level (debug, info, warn, error)")
	flags.Int("checkpoint-interval", c.CheckpointInterval,
		"Steps between agent checkpoints, 0 disables checkpoints")
	flags.Bool("progress", c.Progress, "Display a progress bar")

	return []binding{
		{"num-frames", []string{"training.num_frames"}},
		{"memory-size", []string{"buffer.capacity"}},
		{"batch-size", []string{"training.batch_size",
			"agent_config.batch_size"}},
		{"learning-start", []string{"training.learning_start"}},
		{"train-interval", []string{"training.train_interval"}},
		{"sync-freq", []string{"training.sync_freq"}},
		{"update-hard-or-soft", []string{"training.sync_mode"}},
		{"soft-update-tau", []string{"training.tau"}},
		{"epsilon-start", []string{"agent_config.epsilon.start"}},
		{"epsilon-end", []string{"agent_config.epsilon.end"}},
		{"decay-steps", []string{"agent_config.epsilon.decay_steps"}},
		{"decay-type", []string{"agent_config.epsilon.type"}},
		{"exploration", []string{"exploration.type"}},
		{"exploration-sigma", []string{"exploration.sigma"}},
		{"prioritized", []string{"prioritized"}},
		{"alpha", []string{"buffer.alpha"}},
		{"beta-start", []string{"training.beta.start"}},
		{"beta-end", []string{"training.beta.end"}},
		{"beta-decay-steps", []string{"training.beta.decay_steps"}},
		{"n-step", []string{"buffer.n_step"}},
		{"gamma", []string{"env.discount", "buffer.gamma"}},
		{"env", []string{"env.environment"}},
		{"episode-cutoff", []string{"env.episode_cutoff"}},
		{"agent", []string{"agent"}},
		{"eval-interval", []string{"training.eval_interval"}},
		{"eval-episodes", []string{"training.eval_episodes"}},
		{"seed", []string{"seed"}},
		{"log-dir", []string{"log_dir"}},
		{"log-level", []string{"log_level"}},
		{"checkpoint-interval", []string{"checkpoint_interval"}},
		{"progress", []string{"progress"}},
	}
}

// loadConfig resolves the run configuration from, in order of
// precedence, flags, GORL_ environment variables, the config file and
// the defaults
func loadConfig(v *viper.Viper, flags *pflag.FlagSet,
	bindings []binding) (runConfig, error) {
	for _, b := range bindings {
		f := flags.Lookup(b.flag)
		for _, key := range b.keys {
			if err := v.BindPFlag(key, f); err != nil {
				return runConfig{}, fmt.Errorf("loadConfig: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file, _ := flags.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return runConfig{}, fmt.Errorf("loadConfig: %w", err)
		}
	}

	c := defaultRunConfig()
	if err := v.Unmarshal(&c); err != nil {
		return runConfig{}, fmt.Errorf("loadConfig: %w", err)
	}

	if c.Prioritized {
		c.Buffer.Type = expreplay.PrioritizedType
	}
	if c.Training.Beta.DecaySteps == 0 {
		c.Training.Beta.DecaySteps = c.Training.NumFrames
	}
	return c, nil
}

// agentConfig returns the default configuration of the agent type
// with the fields of AgentConfig applied
func (c runConfig) agentConfig() (agent.Config, error) {
	config, err := agent.NewConfig(c.Agent)
	if err != nil {
		return nil, fmt.Errorf("agentConfig: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("agentConfig: %w", err)
	}
	if err := dec.Decode(c.AgentConfig); err != nil {
		return nil, fmt.Errorf("agentConfig: %v: %w", c.Agent, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("agentConfig: %v: %w", c.Agent, err)
	}
	return config, nil
}

// Validate returns an error describing why a runConfig is invalid, or
// nil if the runConfig is valid
func (c runConfig) Validate() error {
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: env: %w", err)
	}
	if err := c.Buffer.Validate(); err != nil {
		return fmt.Errorf("validate: buffer: %w", err)
	}
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("validate: training: %w", err)
	}
	if c.CheckpointInterval < 0 {
		return fmt.Errorf("validate: checkpoint interval must be "+
			"non-negative \n\thave(%v)", c.CheckpointInterval)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
