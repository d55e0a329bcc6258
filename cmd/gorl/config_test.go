package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gorl/agent"
	"github.com/samuelfneumann/gorl/agent/linear/actorcritic"
	"github.com/samuelfneumann/gorl/agent/linear/dqn"
	"github.com/samuelfneumann/gorl/agent/nonlinear/deepq"
	"github.com/samuelfneumann/gorl/environment/envconfig"
	"github.com/samuelfneumann/gorl/experiment"
	"github.com/samuelfneumann/gorl/experiment/checkpointer"
	"github.com/samuelfneumann/gorl/exploration"
	"github.com/samuelfneumann/gorl/expreplay"
	"github.com/samuelfneumann/gorl/schedule"
)

func load(t *testing.T, args ...string) runConfig {
	t.Helper()
	flags := pflag.NewFlagSet("train", pflag.ContinueOnError)
	bindings := addFlags(flags)
	require.NoError(t, flags.Parse(args))

	c, err := loadConfig(viper.New(), flags, bindings)
	require.NoError(t, err)
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := load(t)
	require.NoError(t, c.Validate())

	assert.Equal(t, agent.LinearDQN, c.Agent)
	assert.Equal(t, expreplay.UniformType, c.Buffer.Type)
	assert.Equal(t, experiment.Hard, c.Training.SyncMode)
	assert.Equal(t, c.Training.NumFrames, c.Training.Beta.DecaySteps)

	ac, err := c.agentConfig()
	require.NoError(t, err)
	d := ac.(*dqn.Config)
	assert.Equal(t, 0.02, d.Epsilon.End)
	assert.Equal(t, 0.01, d.LearningRate)
}

func TestLoadFlags(t *testing.T) {
	c := load(t,
		"--agent", "deepq",
		"--prioritized",
		"--n-step", "3",
		"--gamma", "0.9",
		"--batch-size", "16",
		"--update-hard-or-soft", "soft",
		"--soft-update-tau", "0.05",
		"--decay-type", "curved",
		"--epsilon-end", "0.1",
		"--num-frames", "500",
		"--beta-start", "0.5",
	)
	require.NoError(t, c.Validate())

	assert.Equal(t, expreplay.PrioritizedType, c.Buffer.Type)
	assert.Equal(t, 3, c.Buffer.NStep)
	assert.Equal(t, 0.9, c.Buffer.Gamma)
	assert.Equal(t, 0.9, c.Env.Discount)
	assert.Equal(t, 16, c.Training.BatchSize)
	assert.Equal(t, experiment.Soft, c.Training.SyncMode)
	assert.Equal(t, 0.05, c.Training.Tau)
	assert.Equal(t, 0.5, c.Training.Beta.Start)
	assert.Equal(t, 500, c.Training.Beta.DecaySteps)

	ac, err := c.agentConfig()
	require.NoError(t, err)
	d := ac.(*deepq.Config)
	assert.Equal(t, 16, d.BatchSize)
	assert.Equal(t, schedule.CurvedType, d.Epsilon.Type)
	assert.Equal(t, 0.1, d.Epsilon.End)
	assert.Equal(t, []int{64, 64}, d.Layers)
}

func TestLoadEnvironmentAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"training:\n  eval_episodes: 3\nagent_config:\n  learning_rate: 0.2\n"),
		0o644))
	t.Setenv("GORL_TRAINING_NUM_FRAMES", "1234")

	c := load(t, "--config", file)
	assert.Equal(t, 1234, c.Training.NumFrames)
	assert.Equal(t, 3, c.Training.EvalEpisodes)

	ac, err := c.agentConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.2, ac.(*dqn.Config).LearningRate)

	// Flags take precedence over environment variables
	c = load(t, "--num-frames", "10")
	assert.Equal(t, 10, c.Training.NumFrames)
}

func TestLoadInvalid(t *testing.T) {
	c := load(t, "--log-level", "loud")
	assert.Error(t, c.Validate())

	c = load(t, "--agent", "ppo")
	_, err := c.agentConfig()
	assert.Error(t, err)

	c = load(t, "--decay-type", "cosine")
	_, err = c.agentConfig()
	assert.Error(t, err)
}

func TestTrain(t *testing.T) {
	dir := t.TempDir()
	c := load(t,
		"--num-frames", "200",
		"--learning-start", "50",
		"--memory-size", "100",
		"--batch-size", "8",
		"--eval-interval", "100",
		"--eval-episodes", "1",
		"--checkpoint-interval", "100",
		"--episode-cutoff", "50",
		"--log-dir", dir,
		"--log-level", "warn",
	)
	require.NoError(t, c.Validate())

	var out bytes.Buffer
	require.NoError(t, train(context.Background(), c, &out))

	runs, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	for _, name := range []string{"config.json", "returns.bin", "lengths.bin",
		"moving_average.bin", "checkpoint1.bin", "checkpoint2.bin",
		"agent.bin"} {
		_, err := os.Stat(filepath.Join(dir, runs[0].Name(), name))
		assert.NoError(t, err, name)
	}
}

func TestLoadContinuous(t *testing.T) {
	c := load(t,
		"--agent", "ddpg",
		"--env", "GridWorld",
		"--exploration", "ou",
		"--exploration-sigma", "0.3",
	)
	require.NoError(t, c.Validate())

	assert.Equal(t, envconfig.GridWorld, c.Env.Environment)
	assert.Equal(t, exploration.OrnsteinUhlenbeckType, c.Exploration.Type)
	assert.Equal(t, 0.3, c.Exploration.Sigma)
	assert.Equal(t, 0.15, c.Exploration.Theta)

	// Epsilon and batch size flags do not apply to the actor-critic
	ac, err := c.agentConfig()
	require.NoError(t, err)
	d := ac.(*actorcritic.Config)
	assert.Equal(t, exploration.OrnsteinUhlenbeckType, d.Noise.Type)
	assert.Equal(t, 1e-3, d.ActorLearningRate)
}

func TestTrainContinuous(t *testing.T) {
	dir := t.TempDir()
	c := load(t,
		"--agent", "ddpg",
		"--env", "GridWorld",
		"--exploration", "ou",
		"--prioritized",
		"--num-frames", "200",
		"--learning-start", "50",
		"--memory-size", "100",
		"--batch-size", "8",
		"--eval-interval", "100",
		"--eval-episodes", "1",
		"--checkpoint-interval", "100",
		"--episode-cutoff", "50",
		"--log-dir", dir,
		"--log-level", "warn",
	)
	require.NoError(t, c.Validate())

	var out bytes.Buffer
	require.NoError(t, train(context.Background(), c, &out))

	runs, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	for _, name := range []string{"config.json", "returns.bin",
		"checkpoint1.bin", "checkpoint2.bin", "agent.bin"} {
		_, err := os.Stat(filepath.Join(dir, runs[0].Name(), name))
		assert.NoError(t, err, name)
	}

	restored := &actorcritic.Deterministic{}
	require.NoError(t, checkpointer.Load(filepath.Join(dir, runs[0].Name(),
		"agent.bin"), restored))
}
