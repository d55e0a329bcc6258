package envconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gorl/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/gorl/environment/gridworld"
)

func TestCreate(t *testing.T) {
	e, step, err := Config{Environment: Cartpole, Discount: 0.99}.Create(1)
	require.NoError(t, err)
	assert.IsType(t, &cartpole.Cartpole{}, e)
	assert.True(t, step.First())

	e, _, err = Config{
		Environment:   DiscreteGridWorld,
		Discount:      0.99,
		EpisodeCutoff: 10,
	}.Create(1)
	require.NoError(t, err)
	require.IsType(t, &gridworld.Discrete{}, e)

	e, _, err = Config{Environment: GridWorld, Discount: 1}.Create(1)
	require.NoError(t, err)
	assert.IsType(t, &gridworld.GridWorld{}, e)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{Environment: "MountainCar"}.Validate())
	assert.Error(t, Config{Environment: Cartpole, Discount: 2}.Validate())
	assert.NoError(t, Config{Environment: "gym:CartPole-v0"}.Validate())
}

func TestJSON(t *testing.T) {
	data := []byte(`{"environment": "GridWorld", "discount": 0.9,
		"gridworld": {"num_rooms": 1, "start": [10, 10], "goal": [90, 90],
		"grid_len": 100, "action_limit": 1, "goal_radius": 1}}`)

	var c Config
	require.NoError(t, json.Unmarshal(data, &c))
	require.NoError(t, c.Validate())
	require.NotNil(t, c.GridWorld)
	assert.Equal(t, 1, c.GridWorld.NumRooms)
	assert.Equal(t, [2]float64{90, 90}, c.GridWorld.Goal)

	_, _, err := c.Create(1)
	require.NoError(t, err)
}
