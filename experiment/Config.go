package experiment

import (
	"fmt"

	"github.com/samuelfneumann/gorl/expreplay"
	"github.com/samuelfneumann/gorl/schedule"
	"github.com/samuelfneumann/gorl/utils/intutils"
)

// SyncMode describes how target weights are synchronized with learned
// weights
type SyncMode string

const (
	// Hard copies the learned weights every SyncFreq steps
	Hard SyncMode = "hard"

	// Soft blends the learned weights into the target weights with
	// rate Tau every step
	Soft SyncMode = "soft"
)

// Config describes a training run
type Config struct {
	// NumFrames is the budget of environment steps
	NumFrames int `json:"num_frames" mapstructure:"num_frames"`

	// LearningStart is the number of transitions the buffer must hold
	// before updates begin. Updates never begin before the buffer holds
	// BatchSize transitions.
	LearningStart int `json:"learning_start" mapstructure:"learning_start"`

	// TrainInterval is the number of environment steps between updates
	TrainInterval int `json:"train_interval" mapstructure:"train_interval"`
	BatchSize     int `json:"batch_size" mapstructure:"batch_size"`

	SyncMode SyncMode `json:"sync_mode" mapstructure:"sync_mode"`
	SyncFreq int      `json:"sync_freq" mapstructure:"sync_freq"`
	Tau      float64  `json:"tau" mapstructure:"tau"`

	// EvalInterval is the number of environment steps between
	// evaluations, 0 disables evaluation
	EvalInterval int     `json:"eval_interval" mapstructure:"eval_interval"`
	EvalEpisodes int     `json:"eval_episodes" mapstructure:"eval_episodes"`
	EvalEpsilon  float64 `json:"eval_epsilon" mapstructure:"eval_epsilon"`

	// RewardBufferEpisodes is the number of episodes the moving average
	// episode reward is computed over
	RewardBufferEpisodes int `json:"reward_buffer_episodes" mapstructure:"reward_buffer_episodes"`

	// Beta anneals the importance sampling exponent of prioritized
	// buffers with the global step
	Beta schedule.Config `json:"beta" mapstructure:"beta"`
}

// Default returns the default training configuration
func Default() Config {
	return Config{
		NumFrames:            30_000,
		LearningStart:        1_000,
		TrainInterval:        1,
		BatchSize:            32,
		SyncMode:             Hard,
		SyncFreq:             1_000,
		Tau:                  1e-2,
		EvalInterval:         5_000,
		EvalEpisodes:         10,
		EvalEpsilon:          0.05,
		RewardBufferEpisodes: 10,
		Beta: schedule.Config{
			Type:       schedule.LinearType,
			Start:      expreplay.DefaultBeta,
			End:        1.0,
			DecaySteps: 30_000,
		},
	}
}

// Validate returns an error describing why a Config is invalid, or nil
// if the Config is valid
func (c Config) Validate() error {
	if c.NumFrames < 1 {
		return fmt.Errorf("validate: number of frames must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.NumFrames)
	}

	if c.LearningStart < 0 {
		return fmt.Errorf("validate: learning start must be non-negative "+
			"\n\twant(>=0) \n\thave(%v)", c.LearningStart)
	}

	if c.TrainInterval < 1 {
		return fmt.Errorf("validate: train interval must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.TrainInterval)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.BatchSize)
	}

	switch c.SyncMode {
	case Hard:
		if c.SyncFreq < 1 {
			return fmt.Errorf("validate: sync frequency must be positive "+
				"\n\twant(>0) \n\thave(%v)", c.SyncFreq)
		}
	case Soft:
		if c.Tau <= 0 || c.Tau > 1 {
			return fmt.Errorf("validate: tau must be in (0, 1] "+
				"\n\thave(%v)", c.Tau)
		}
	default:
		return fmt.Errorf("validate: no such sync mode %q "+
			"\n\twant(%q or %q)", c.SyncMode, Hard, Soft)
	}

	if c.EvalInterval < 0 {
		return fmt.Errorf("validate: evaluation interval must be "+
			"non-negative \n\twant(>=0) \n\thave(%v)", c.EvalInterval)
	}

	if c.EvalInterval > 0 && c.EvalEpisodes < 1 {
		return fmt.Errorf("validate: evaluation episodes must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.EvalEpisodes)
	}

	if c.EvalEpsilon < 0 || c.EvalEpsilon > 1 {
		return fmt.Errorf("validate: evaluation epsilon must be in [0, 1] "+
			"\n\thave(%v)", c.EvalEpsilon)
	}

	if c.RewardBufferEpisodes < 1 {
		return fmt.Errorf("validate: reward buffer episodes must be "+
			"positive \n\twant(>0) \n\thave(%v)", c.RewardBufferEpisodes)
	}

	if err := c.Beta.Validate(); err != nil {
		return fmt.Errorf("validate: beta: %w", err)
	}
	return nil
}

// learningStart returns the buffer size at which updates begin
func (c Config) learningStart() int {
	return intutils.Max(c.LearningStart, c.BatchSize)
}
