// Command gorl trains agents with experience replay.
//
//	gorl train --env Cartpole --agent deepq --prioritized --n-step 3
//	gorl train --env GridWorld --agent ddpg --exploration ou
//
// Every flag can also be set through a GORL_ environment variable or a
// JSON/YAML configuration file given with --config.
package main

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/samuelfneumann/gorl/agent"
	_ "github.com/samuelfneumann/gorl/agent/linear/actorcritic"
	_ "github.com/samuelfneumann/gorl/agent/linear/dqn"
	_ "github.com/samuelfneumann/gorl/agent/nonlinear/deepq"
	"github.com/samuelfneumann/gorl/experiment"
	"github.com/samuelfneumann/gorl/experiment/checkpointer"
	"github.com/samuelfneumann/gorl/experiment/summary"
	"github.com/samuelfneumann/gorl/experiment/tracker"
	"github.com/samuelfneumann/gorl/utils/progressbar"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gorl",
		Short: "Reinforcement learning with experience replay",
		Long: `gorl trains DQN agents on discrete control environments and
linear deterministic actor-critic agents on continuous ones.

Transitions are stored in a uniform or prioritized replay buffer,
optionally as n-step transitions, and the agent is updated from
sampled batches with a hard or soft synchronized target.`,
		SilenceUsage: true,
	}
	root.AddCommand(newTrainCmd(), newAgentsCmd())
	return root
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the available agent types and their default configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range agent.Registered() {
				c, err := agent.NewConfig(t)
				if err != nil {
					return err
				}
				data, err := json.Marshal(c)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v\t%s\n", t, data)
			}
			return nil
		},
	}
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent",
	}
	bindings := addFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(viper.New(), cmd.Flags(), bindings)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt,
			syscall.SIGTERM)
		defer stop()

		return train(ctx, c, cmd.ErrOrStderr())
	}
	return cmd
}

// newLogger returns a console logger writing to out at the named level
func newLogger(out io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger(), nil
}

// train runs the training run described by c, writing logs to out and
// run data to a new directory under c.LogDir
func train(ctx context.Context, c runConfig, out io.Writer) error {
	log, err := newLogger(out, c.LogLevel)
	if err != nil {
		return err
	}

	runID := uuid.New()
	dir := filepath.Join(c.LogDir, runID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	log = log.With().Str("run", runID.String()).Logger()

	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data,
		0o644); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	e, _, err := c.Env.Create(c.Seed)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	evalEnv, _, err := c.Env.Create(c.Seed + 1)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	agentConfig, err := c.agentConfig()
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	a, err := agentConfig.CreateAgent(e, c.Seed)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if closer, ok := a.(io.Closer); ok {
		defer closer.Close()
	}

	buffer, err := c.Buffer.Create(e.ObservationSpec().Len(),
		e.ActionSpec().Len(), c.Seed)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	explore, err := c.Exploration.Create(e.ActionSpec(), c.Seed)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	returns := tracker.NewReturn(filepath.Join(dir, "returns.bin"))
	lengths := tracker.NewEpisodeLength(filepath.Join(dir, "lengths.bin"))
	averages := tracker.NewMovingAverage(c.Training.RewardBufferEpisodes,
		filepath.Join(dir, "moving_average.bin"))

	opts := []experiment.Option{
		experiment.WithEvalEnvironment(evalEnv),
		experiment.WithExploration(explore),
		experiment.WithLogger(log),
		experiment.WithSummary(summary.NewLogger(log, zerolog.DebugLevel)),
		experiment.WithTrackers(returns, lengths, averages),
	}

	encoder, canCheckpoint := a.(gob.GobEncoder)
	if c.CheckpointInterval > 0 && canCheckpoint {
		cp, err := checkpointer.NewNStep(c.CheckpointInterval, encoder,
			checkpointer.FilenameEnumerator(0,
				filepath.Join(dir, "checkpoint"), ".bin"))
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		opts = append(opts, experiment.WithCheckpointers(cp))
	}

	if c.Progress {
		bar := progressbar.New(out, 40, c.Training.NumFrames)
		defer bar.Close()
		opts = append(opts, experiment.WithProgress(func(step, total int) {
			bar.Set(step)
			if step%100 == 0 || step == total {
				bar.Display()
			}
		}))
	}

	trainer, err := experiment.New(c.Training, e, a, buffer, opts...)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	log.Info().
		Str("agent", string(c.Agent)).
		Str("env", string(c.Env.Environment)).
		Str("buffer", string(c.Buffer.Type)).
		Int("n_step", c.Buffer.NStep).
		Str("dir", dir).
		Msg("starting run")

	runErr := trainer.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("train: %w", runErr)
	}

	for _, t := range []tracker.Tracker{returns, lengths, averages} {
		if err := t.Save(); err != nil {
			return fmt.Errorf("train: %w", err)
		}
	}
	if canCheckpoint {
		if err := checkpointer.Save(filepath.Join(dir, "agent.bin"),
			encoder); err != nil {
			return fmt.Errorf("train: %w", err)
		}
	}

	stats := trainer.Stats()
	log.Info().
		Int("steps", stats.GlobalStep).
		Int("episodes", stats.Episodes).
		Float64("moving_average_reward", stats.MovingAverage).
		Floats64("eval_scores", stats.EvalScores).
		Bool("interrupted", runErr != nil).
		Msg("run finished")
	return nil
}
