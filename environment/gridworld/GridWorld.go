// Package gridworld implements a continuous 2D gridworld in which an
// agent moves a point through a square arena, optionally split into
// rooms by walls, toward a circular goal region.
package gridworld

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	env "github.com/samuelfneumann/gorl/environment"
	ts "github.com/samuelfneumann/gorl/timestep"
	"github.com/samuelfneumann/gorl/utils/floatutils"
)

const (
	ObservationDims int = 2
	ActionDims      int = 2
)

// Config describes the layout and rewards of a GridWorld
type Config struct {
	// NumRooms is either 0, for an empty arena, or 1, for an arena with
	// one room in the lower left quadrant which has a single door
	NumRooms int `json:"num_rooms" mapstructure:"num_rooms"`

	Start [2]float64 `json:"start" mapstructure:"start"`
	Goal  [2]float64 `json:"goal" mapstructure:"goal"`

	GoalReward  float64 `json:"goal_reward" mapstructure:"goal_reward"`
	GoalRadius  float64 `json:"goal_radius" mapstructure:"goal_radius"`
	StepPenalty float64 `json:"step_penalty" mapstructure:"step_penalty"`

	// DenseGoals are intermediate goals which give DenseReward the first
	// time each is reached in an episode
	DenseGoals  [][2]float64 `json:"dense_goals" mapstructure:"dense_goals"`
	DenseReward float64      `json:"dense_reward" mapstructure:"dense_reward"`

	MaxEpisodeLen int     `json:"max_episode_len" mapstructure:"max_episode_len"`
	GridLen       float64 `json:"grid_len" mapstructure:"grid_len"`
	WallBreadth   float64 `json:"wall_breadth" mapstructure:"wall_breadth"`
	DoorBreadth   float64 `json:"door_breadth" mapstructure:"door_breadth"`

	// ActionLimit bounds the movement along each axis in a single step
	ActionLimit float64 `json:"action_limit" mapstructure:"action_limit"`
}

// DefaultConfig returns the default GridWorld configuration: an empty
// 100x100 arena with the agent starting at (25, 25) and the goal at
// (75, 75).
func DefaultConfig() Config {
	return Config{
		NumRooms:      0,
		Start:         [2]float64{25, 25},
		Goal:          [2]float64{75, 75},
		GoalReward:    100,
		GoalRadius:    1,
		StepPenalty:   -0.01,
		DenseReward:   5,
		MaxEpisodeLen: 1000,
		GridLen:       100,
		WallBreadth:   1,
		DoorBreadth:   5,
		ActionLimit:   1,
	}
}

// Validate returns an error describing why a Config is invalid, or nil
// if the Config is valid
func (c Config) Validate() error {
	if c.NumRooms != 0 && c.NumRooms != 1 {
		return fmt.Errorf("validate: only 0 or 1 rooms are supported "+
			"\n\thave(%v)", c.NumRooms)
	}
	if c.GridLen <= 0 {
		return fmt.Errorf("validate: grid length must be positive "+
			"\n\thave(%v)", c.GridLen)
	}
	if c.ActionLimit <= 0 {
		return fmt.Errorf("validate: action limit must be positive "+
			"\n\thave(%v)", c.ActionLimit)
	}
	if c.GoalRadius < 0 {
		return fmt.Errorf("validate: goal radius must be non-negative "+
			"\n\thave(%v)", c.GoalRadius)
	}
	points := append([][2]float64{c.Start, c.Goal}, c.DenseGoals...)
	for _, p := range points {
		if p[0] < 0 || p[0] > c.GridLen || p[1] < 0 || p[1] > c.GridLen {
			return fmt.Errorf("validate: point %v outside of grid [0, %v]",
				p, c.GridLen)
		}
	}
	return nil
}

// wall is an axis-aligned rectangle which the agent cannot enter
type wall struct {
	min, max r2.Vec
}

// contains returns whether p lies in the wall, including its boundary
func (w wall) contains(p r2.Vec) bool {
	return p.X >= w.min.X && p.X <= w.max.X && p.Y >= w.min.Y &&
		p.Y <= w.max.Y
}

// GridWorld implements a continuous 2D gridworld. Observations are the
// (x, y) position of the agent. Actions are (dx, dy) displacements with
// each component in [-ActionLimit, ActionLimit]. Moves which would end
// inside a wall are ignored, and positions are clipped to the arena.
//
// Each step gives StepPenalty, unless a dense goal is reached, which
// gives DenseReward, or the goal is reached, which gives GoalReward and
// ends the episode. Episodes are also cut off after MaxEpisodeLen
// steps.
//
// GridWorld implements the environment.Environment interface
type GridWorld struct {
	config   Config
	starter  env.Starter
	ender    env.Enders
	walls    []wall
	goal     r2.Vec
	discount float64

	denseGoals []r2.Vec
	lastStep   ts.TimeStep
}

// New constructs a new GridWorld
func New(c Config, discount float64) (*GridWorld, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}

	g := &GridWorld{
		config:   c,
		starter:  env.NewFixedStarter(c.Start[:]),
		walls:    createWalls(c),
		goal:     r2.Vec{X: c.Goal[0], Y: c.Goal[1]},
		discount: discount,
	}
	g.ender = env.Enders{
		env.NewFunctionEnder(g.AtGoal),
		env.NewStepLimit(c.MaxEpisodeLen),
	}

	step, err := g.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return g, step, nil
}

// createWalls returns the walls of the arena described by c
func createWalls(c Config) []wall {
	if c.NumRooms == 0 {
		return nil
	}

	half, quarter := c.GridLen/2, c.GridLen/4
	b, d := c.WallBreadth, c.DoorBreadth
	return []wall{
		// Parallel to the x-axis, from the left edge to the centre
		{r2.Vec{X: 0, Y: half - b}, r2.Vec{X: half, Y: half + b}},

		// Parallel to the y-axis, above the door
		{r2.Vec{X: half - b, Y: quarter + d}, r2.Vec{X: half + b, Y: half}},

		// Parallel to the y-axis, below the door
		{r2.Vec{X: half - b, Y: 0}, r2.Vec{X: half + b, Y: quarter - d}},
	}
}

// Reset resets the environment to the starting position
func (g *GridWorld) Reset() (ts.TimeStep, error) {
	g.denseGoals = g.denseGoals[:0]
	for _, p := range g.config.DenseGoals {
		g.denseGoals = append(g.denseGoals, r2.Vec{X: p[0], Y: p[1]})
	}

	start := g.starter.Start()
	if g.collides(toVec(start)) {
		return ts.TimeStep{}, fmt.Errorf("reset: start position %v is "+
			"inside a wall", start.RawVector().Data)
	}

	g.lastStep = ts.New(ts.First, 0, g.discount, start, 0)
	return g.lastStep, nil
}

// Step moves the agent by the displacement a
func (g *GridWorld) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions should be "+
			"%v-dimensional \n\thave(%v)", ActionDims, a.Len())
	}
	if math.Abs(a.AtVec(0)) > g.config.ActionLimit ||
		math.Abs(a.AtVec(1)) > g.config.ActionLimit {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"outside of [%v, %v]", a.RawVector().Data, -g.config.ActionLimit,
			g.config.ActionLimit)
	}
	if g.lastStep.Last() {
		return ts.TimeStep{}, false, fmt.Errorf("step: episode has ended, " +
			"call Reset")
	}

	state := toVec(g.lastStep.Observation)
	next := r2.Vec{X: state.X + a.AtVec(0), Y: state.Y + a.AtVec(1)}
	if !g.collides(next) {
		state = next
	}
	state.X = floatutils.Clip(state.X, 0, g.config.GridLen)
	state.Y = floatutils.Clip(state.Y, 0, g.config.GridLen)

	obs := mat.NewVecDense(ObservationDims, []float64{state.X, state.Y})
	reward := g.GetReward(g.lastStep.Observation, a, obs)

	nextStep := ts.New(ts.Mid, reward, g.discount, obs,
		g.lastStep.Number+1)
	g.ender.End(&nextStep)

	g.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// GetReward returns the reward for moving to nextState. Reaching a
// dense goal removes it for the rest of the episode.
func (g *GridWorld) GetReward(_, _, nextState mat.Vector) float64 {
	reward := g.config.StepPenalty
	p := toVec(nextState)

	remaining := g.denseGoals[:0]
	for _, goal := range g.denseGoals {
		if g.within(p, goal) {
			reward = g.config.DenseReward
			continue
		}
		remaining = append(remaining, goal)
	}
	g.denseGoals = remaining

	if g.within(p, g.goal) {
		reward = g.config.GoalReward
	}
	return reward
}

// AtGoal returns whether state is within the goal radius of the goal
func (g *GridWorld) AtGoal(state *mat.VecDense) bool {
	return g.within(toVec(state), g.goal)
}

// within returns whether p is within the goal radius of goal
func (g *GridWorld) within(p, goal r2.Vec) bool {
	return math.Hypot(p.X-goal.X, p.Y-goal.Y) <= g.config.GoalRadius
}

// collides returns whether p lies inside a wall
func (g *GridWorld) collides(p r2.Vec) bool {
	for _, w := range g.walls {
		if w.contains(p) {
			return true
		}
	}
	return false
}

// ObservationSpec returns the observation specification of the
// environment
func (g *GridWorld) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)
	lowerBound := mat.NewVecDense(ObservationDims, nil)
	upperBound := mat.NewVecDense(ObservationDims, []float64{
		g.config.GridLen, g.config.GridLen})

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (g *GridWorld) ActionSpec() env.Spec {
	limit := g.config.ActionLimit
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{-limit, -limit})
	upperBound := mat.NewVecDense(ActionDims, []float64{limit, limit})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (g *GridWorld) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{g.discount})

	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

func (g *GridWorld) String() string {
	obs := g.lastStep.Observation
	return fmt.Sprintf("GridWorld  |  Position: (%.2f, %.2f)  |  Goal: "+
		"(%.2f, %.2f)", obs.AtVec(0), obs.AtVec(1), g.goal.X, g.goal.Y)
}

func toVec(v mat.Vector) r2.Vec {
	return r2.Vec{X: v.AtVec(0), Y: v.AtVec(1)}
}
