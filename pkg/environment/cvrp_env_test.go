package environment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/cvrpq/pkg/cvrp"
)

// testInstance is the 4-node walkthrough problem: depot 0 at the origin,
// three customers on the unit square with demands 3, 4, 5, capacity 10.
func testInstance(t *testing.T) *cvrp.Instance {
	t.Helper()
	inst, err := cvrp.NewInstance("unit-square",
		map[int]cvrp.Point{
			0: {X: 0, Y: 0},
			1: {X: 1, Y: 0},
			2: {X: 1, Y: 1},
			3: {X: 0, Y: 1},
		},
		map[int]float64{1: 3, 2: 4, 3: 5},
		0, 10,
	)
	require.NoError(t, err)
	return inst
}

func step(t *testing.T, env *CVRPEnv, action int) (float64, bool) {
	t.Helper()
	_, reward, done := env.Step(action)
	return reward, done
}

func TestStepWalkthrough(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))
	env.Reset()

	reward, done := step(t, env, 1)
	assert.False(t, done)
	assert.InDelta(t, -1.0, reward, 1e-9)

	reward, done = step(t, env, 2)
	assert.False(t, done)
	assert.InDelta(t, -1.0, reward, 1e-9)

	// Customer 3 (demand 5) no longer fits on a load of 7, so the depot
	// becomes a legal move.
	reward, done = step(t, env, 0)
	assert.False(t, done)
	assert.InDelta(t, -math.Sqrt2, reward, 1e-9)

	reward, done = step(t, env, 3)
	assert.False(t, done)
	assert.InDelta(t, -1.0, reward, 1e-9)

	reward, done = step(t, env, 0)
	require.True(t, done)

	wantDistance := 1 + 1 + math.Sqrt2 + 1 + 1
	assert.InDelta(t, 1000/wantDistance, reward, 1e-9)

	best, ok := env.BestSolution()
	require.True(t, ok)
	require.Len(t, best.Routes, 2)
	assert.Equal(t, []int{0, 1, 2, 0}, best.Routes[0])
	assert.Equal(t, []int{0, 3, 0}, best.Routes[1])
	assert.InDelta(t, wantDistance, best.Distance, 1e-9)

	route, distance := env.RenderRoute()
	assert.Equal(t, []int{0, 1, 2, 0, 3, 0}, route)
	assert.InDelta(t, wantDistance, distance, 1e-9)
}

func TestLoadTracksDemandsSinceDepot(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))
	env.Reset()

	state := env.GetState()
	assert.Zero(t, state.Load)

	env.Step(1)
	assert.InDelta(t, 3, env.GetState().Load, 1e-9)

	env.Step(2)
	state = env.GetState()
	assert.InDelta(t, 7, state.Load, 1e-9)
	assert.LessOrEqual(t, state.Load, 10.0)

	// Returning to the depot empties the vehicle.
	env.Step(0)
	assert.Zero(t, env.GetState().Load)

	env.Step(3)
	assert.InDelta(t, 5, env.GetState().Load, 1e-9)
}

func TestValidMovesDepotGating(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))
	env.Reset()

	// At the depot with every customer feasible: depot must not be offered.
	assert.Equal(t, []int{1, 2, 3}, env.GetValidMoves())

	// One customer served, others still feasible: still no depot.
	env.Step(1)
	assert.Equal(t, []int{2, 3}, env.GetValidMoves())

	// Load 7: customer 3 no longer fits, so only 2 and the depot remain.
	env.Step(2)
	assert.Equal(t, []int{0}, env.GetValidMoves())
}

func TestInvalidActionIsTerminalPenalty(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))
	env.Reset()

	// Returning to the depot from the depot is illegal.
	_, reward, done := env.Step(0)
	assert.True(t, done)
	assert.Equal(t, -1000.0, reward)

	// An unknown node is just as terminal.
	env.Reset()
	_, reward, done = env.Step(42)
	assert.True(t, done)
	assert.Equal(t, -1000.0, reward)
}

func TestResetIsIdempotent(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))

	first := env.Reset()
	env.Step(1)
	env.Step(2)
	env.Step(0)
	second := env.Reset()

	assert.Equal(t, first, second)
	assert.Equal(t, first.Key(), second.Key())
	assert.True(t, first.AtDepot)
	assert.Equal(t, []int{1, 2, 3}, first.Unvisited)
}

func TestRewardDecreasesWithDistance(t *testing.T) {
	runEpisode := func(actions []int) float64 {
		env := NewCVRPEnv(testInstance(t))
		env.Reset()
		var reward float64
		var done bool
		for _, a := range actions {
			_, reward, done = env.Step(a)
		}
		require.True(t, done)
		require.Positive(t, reward)
		return reward
	}

	short := runEpisode([]int{1, 2, 0, 3, 0})
	long := runEpisode([]int{3, 1, 0, 2, 0})
	assert.Greater(t, short, long)
}

func TestBestSolutionSurvivesWorseEpisodes(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))

	env.Reset()
	for _, a := range []int{1, 2, 0, 3, 0} {
		env.Step(a)
	}
	best, ok := env.BestSolution()
	require.True(t, ok)
	shortDistance := best.Distance

	// A longer but still valid episode must not displace the best.
	env.Reset()
	for _, a := range []int{3, 1, 0, 2, 0} {
		env.Step(a)
	}
	best, ok = env.BestSolution()
	require.True(t, ok)
	assert.Equal(t, shortDistance, best.Distance)
}

func TestStateKeyCanonical(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))

	// Two episodes reaching the same logical configuration by different
	// orders map to the same key.
	env.Reset()
	env.Step(1)
	env.Step(2)
	env.Step(0)
	keyA := env.GetState().Key()

	env.Reset()
	env.Step(2)
	env.Step(1)
	env.Step(0)
	keyB := env.GetState().Key()

	assert.Equal(t, keyA, keyB)
}

func TestCustomerCoverageOnCompletion(t *testing.T) {
	env := NewCVRPEnv(testInstance(t))
	env.Reset()
	for _, a := range []int{1, 2, 0, 3, 0} {
		env.Step(a)
	}

	best, ok := env.BestSolution()
	require.True(t, ok)

	seen := map[int]int{}
	for _, route := range best.Routes {
		for _, node := range route {
			if node != 0 {
				seen[node]++
			}
		}
	}
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, seen)
}
