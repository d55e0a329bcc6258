// Package experiment implements the training loop which drives an agent
// through an environment, stores the generated transitions in a replay
// buffer and updates the agent from batches sampled from the buffer.
package experiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/gorl/agent"
	env "github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/experiment/checkpointer"
	"github.com/samuelfneumann/gorl/experiment/summary"
	"github.com/samuelfneumann/gorl/experiment/tracker"
	"github.com/samuelfneumann/gorl/exploration"
	"github.com/samuelfneumann/gorl/expreplay"
	"github.com/samuelfneumann/gorl/schedule"
	ts "github.com/samuelfneumann/gorl/timestep"
)

// Stats summarizes the progress of a training run
type Stats struct {
	GlobalStep    int
	Episodes      int
	Updates       int
	LastLoss      float64
	MovingAverage float64
	EvalScores    []float64
}

// Option configures optional parts of a Trainer
type Option func(*Trainer)

// WithEvalEnvironment sets a separate environment for evaluation. Without
// one, evaluation uses the training environment and a pending
// evaluation runs once the current training episode ends, or after the
// last step of the budget if that episode is still running.
func WithEvalEnvironment(e env.Environment) Option {
	return func(t *Trainer) {
		t.evalEnv = e
	}
}

// WithExploration sets the policy which selects actions during warmup.
// Without one, the agent selects warmup actions.
func WithExploration(p exploration.Policy) Option {
	return func(t *Trainer) {
		t.explore = p
	}
}

// WithSummary sets the writer which records scalar metrics
func WithSummary(w summary.Writer) Option {
	return func(t *Trainer) {
		t.summary = w
	}
}

// WithLogger sets the logger of phase changes and evaluation results
func WithLogger(log zerolog.Logger) Option {
	return func(t *Trainer) {
		t.log = log
	}
}

// WithTrackers sets Trackers which observe every training timestep
func WithTrackers(trackers ...tracker.Tracker) Option {
	return func(t *Trainer) {
		t.trackers = append(t.trackers, trackers...)
	}
}

// WithCheckpointers sets Checkpointers which are called after every
// environment step
func WithCheckpointers(c ...checkpointer.Checkpointer) Option {
	return func(t *Trainer) {
		t.checkpointers = append(t.checkpointers, c...)
	}
}

// WithOnPhase sets a hook which is called on every phase change
func WithOnPhase(f func(from, to Phase)) Option {
	return func(t *Trainer) {
		t.onPhase = f
	}
}

// WithProgress sets a hook which is called after every environment step
// with the global step and the step budget
func WithProgress(f func(step, total int)) Option {
	return func(t *Trainer) {
		t.progress = f
	}
}

// Trainer runs a single training run. All run state lives in the
// Trainer and a Trainer is not safe for concurrent use.
type Trainer struct {
	config  Config
	env     env.Environment
	evalEnv env.Environment
	agent   agent.Agent
	buffer  expreplay.ExperienceReplayer

	// prioritizer is nil if buffer does not sample by priority
	prioritizer expreplay.Prioritizer
	beta        schedule.Schedule

	explore       exploration.Policy
	summary       summary.Writer
	log           zerolog.Logger
	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	onPhase       func(from, to Phase)
	progress      func(step, total int)

	phase       Phase
	evalPending bool

	globalStep    int
	episodes      int
	updates       int
	lastLoss      float64
	episodeReward float64
	episodeLength int

	// recentRewards holds the rewards of the last RewardBufferEpisodes
	// episodes
	recentRewards []float64
	evalScores    []float64
}

// New returns a new Trainer which trains a on e, storing transitions in
// buffer
func New(c Config, e env.Environment, a agent.Agent,
	buffer expreplay.ExperienceReplayer, opts ...Option) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	if c.learningStart() > buffer.Capacity() {
		return nil, fmt.Errorf("new: buffer cannot hold enough transitions "+
			"to begin learning \n\twant(>=%v) \n\thave(%v)", c.learningStart(),
			buffer.Capacity())
	}

	beta, err := c.Beta.Create()
	if err != nil {
		return nil, fmt.Errorf("new: beta: %w", err)
	}

	t := &Trainer{
		config:  c,
		env:     e,
		agent:   a,
		buffer:  buffer,
		beta:    beta,
		summary: summary.Discard{},
		log:     zerolog.Nop(),
		phase:   Warmup,
	}
	t.prioritizer, _ = expreplay.AsPrioritizer(buffer)

	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Phase returns the current phase of the run
func (t *Trainer) Phase() Phase {
	return t.phase
}

// Stats returns the current statistics of the run
func (t *Trainer) Stats() Stats {
	scores := make([]float64, len(t.evalScores))
	copy(scores, t.evalScores)

	return Stats{
		GlobalStep:    t.globalStep,
		Episodes:      t.episodes,
		Updates:       t.updates,
		LastLoss:      t.lastLoss,
		MovingAverage: t.movingAverage(),
		EvalScores:    scores,
	}
}

// Run runs training until the step budget is exhausted, ctx is
// cancelled, or the environment or agent report an error. Run returns
// ctx.Err() if ctx is cancelled. A Trainer can only be run once.
func (t *Trainer) Run(ctx context.Context) error {
	if t.phase == Done {
		return fmt.Errorf("run: training run already finished")
	}
	defer t.setPhase(Done)

	t.log.Info().
		Int("num_frames", t.config.NumFrames).
		Int("learning_start", t.config.learningStart()).
		Str("sync_mode", string(t.config.SyncMode)).
		Bool("prioritized", t.prioritizer != nil).
		Msg("starting training")

	step, err := t.reset()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	for t.globalStep < t.config.NumFrames {
		if err := ctx.Err(); err != nil {
			t.log.Warn().Int("step", t.globalStep).Msg("training cancelled")
			return err
		}

		action := t.act(step)
		next, _, err := t.env.Step(action)
		if err != nil {
			return fmt.Errorf("run: step %v: %w", t.globalStep, err)
		}
		t.globalStep++

		if err := t.buffer.Add(ts.NewTransition(step, action, next)); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		t.episodeReward += next.Reward
		t.episodeLength++
		t.track(next)

		if t.phase == Warmup && t.buffer.Len() >= t.config.learningStart() {
			t.setPhase(Training)
		}

		if t.phase == Training {
			if err := t.trainStep(); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			if t.config.EvalInterval > 0 &&
				t.globalStep%t.config.EvalInterval == 0 {
				t.evalPending = true
			}
		}

		for _, c := range t.checkpointers {
			if err := c.Checkpoint(t.globalStep); err != nil {
				return fmt.Errorf("run: %w", err)
			}
		}

		if t.progress != nil {
			t.progress(t.globalStep, t.config.NumFrames)
		}

		if t.evalPending && (t.evalEnv != nil || next.Last()) {
			if err := t.evaluate(ctx); err != nil {
				return fmt.Errorf("run: %w", err)
			}
		}

		if next.Last() {
			t.endEpisode()
			if t.globalStep >= t.config.NumFrames {
				break
			}

			step, err = t.reset()
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
		} else {
			step = next
		}
	}

	// Episodes on a shared environment may outlast the budget
	if t.evalPending {
		if err := t.evaluate(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	t.log.Info().
		Int("step", t.globalStep).
		Int("episodes", t.episodes).
		Int("updates", t.updates).
		Float64("moving_average_reward", t.movingAverage()).
		Msg("training finished")
	return nil
}

// reset starts a new training episode
func (t *Trainer) reset() (ts.TimeStep, error) {
	step, err := t.env.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	if t.explore != nil {
		t.explore.Reset()
	}
	t.episodeReward = 0
	t.episodeLength = 0
	t.track(step)
	return step, nil
}

// act selects the training action at step
func (t *Trainer) act(step ts.TimeStep) *mat.VecDense {
	if t.phase == Warmup && t.explore != nil {
		return t.explore.Action()
	}

	if eg, ok := t.agent.(agent.EGreedy); ok {
		eg.SetStep(t.globalStep)
	}
	return t.agent.SelectAction(step)
}

// trainStep performs the updates and target synchronization due at the
// current global step
func (t *Trainer) trainStep() error {
	if t.globalStep%t.config.TrainInterval == 0 {
		if err := t.update(); err != nil {
			return err
		}
	}

	switch t.config.SyncMode {
	case Hard:
		if t.globalStep%t.config.SyncFreq == 0 {
			if err := t.agent.SyncTarget(1.0); err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			t.log.Debug().Int("step", t.globalStep).Msg("target synced")
		}
	case Soft:
		if err := t.agent.SyncTarget(t.config.Tau); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
	}
	return nil
}

// update samples a batch from the buffer, updates the agent on the batch
// and writes the new priorities back to prioritized buffers
func (t *Trainer) update() error {
	if t.prioritizer != nil {
		t.prioritizer.SetBeta(t.beta.Value(t.globalStep))
	}

	batch, err := t.buffer.Sample(t.config.BatchSize)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	loss, tdErrors, err := t.agent.Update(batch)
	if err != nil {
		return fmt.Errorf("update: step %v: %w", t.globalStep, err)
	}

	if t.prioritizer != nil {
		if err := t.prioritizer.UpdatePriorities(batch.Indices,
			tdErrors); err != nil {
			return fmt.Errorf("update: %w", err)
		}
	}

	t.updates++
	t.lastLoss = loss
	t.summary.Scalar("train/loss", loss, t.globalStep)
	return nil
}

// endEpisode records the metrics of a finished training episode
func (t *Trainer) endEpisode() {
	t.episodes++

	t.recentRewards = append(t.recentRewards, t.episodeReward)
	if len(t.recentRewards) > t.config.RewardBufferEpisodes {
		t.recentRewards = t.recentRewards[1:]
	}
	avg := t.movingAverage()

	t.summary.Scalar("train/episode_reward", t.episodeReward, t.globalStep)
	t.summary.Scalar("train/moving_average_reward", avg, t.globalStep)
	t.summary.Scalar("train/episode_length", float64(t.episodeLength),
		t.globalStep)

	event := t.log.Debug().
		Int("step", t.globalStep).
		Int("episode", t.episodes).
		Float64("reward", t.episodeReward).
		Float64("moving_average_reward", avg).
		Int("length", t.episodeLength)

	if eg, ok := t.agent.(agent.EGreedy); ok {
		t.summary.Scalar("train/epsilon", eg.Epsilon(), t.globalStep)
		event = event.Float64("epsilon", eg.Epsilon())
	}
	if t.prioritizer != nil {
		t.summary.Scalar("train/beta", t.prioritizer.Beta(), t.globalStep)
		event = event.Float64("beta", t.prioritizer.Beta())
	}
	event.Msg("episode finished")
}

// movingAverage returns the mean reward of the most recent episodes
func (t *Trainer) movingAverage() float64 {
	if len(t.recentRewards) == 0 {
		return 0
	}
	return stat.Mean(t.recentRewards, nil)
}

// evaluate runs EvalEpisodes evaluation episodes and records their mean
// episode reward
func (t *Trainer) evaluate(ctx context.Context) error {
	t.evalPending = false
	t.setPhase(Eval)

	e := t.evalEnv
	if e == nil {
		e = t.env
	}

	t.agent.Eval()
	if eg, ok := t.agent.(agent.EGreedy); ok {
		eg.SetEvalEpsilon(t.config.EvalEpsilon)
	}
	defer t.agent.Train()

	scores := make([]float64, t.config.EvalEpisodes)
	for i := range scores {
		step, err := e.Reset()
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}

		for !step.Last() {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}

			step, _, err = e.Step(t.agent.SelectAction(step))
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}
			scores[i] += step.Reward
		}
	}

	mean := stat.Mean(scores, nil)
	t.evalScores = append(t.evalScores, mean)
	t.summary.Scalar("eval/mean_reward", mean, t.globalStep)
	t.log.Info().
		Int("step", t.globalStep).
		Int("episodes", t.config.EvalEpisodes).
		Float64("mean_reward", mean).
		Msg("evaluation finished")

	t.setPhase(Training)
	return nil
}

// setPhase moves the run to phase p
func (t *Trainer) setPhase(p Phase) {
	if p == t.phase {
		return
	}

	from := t.phase
	t.phase = p
	t.log.Info().
		Stringer("from", from).
		Stringer("to", p).
		Int("step", t.globalStep).
		Msg("phase change")

	if t.onPhase != nil {
		t.onPhase(from, p)
	}
}

// track tracks the timestep t in each Tracker
func (t *Trainer) track(step ts.TimeStep) {
	for _, tr := range t.trackers {
		tr.Track(step)
	}
}
