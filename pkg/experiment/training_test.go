package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/cvrpq/pkg/agent"
	"github.com/boristopalov/cvrpq/pkg/config"
	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/cvrp"
	"github.com/boristopalov/cvrpq/pkg/environment"
	"github.com/boristopalov/cvrpq/pkg/messaging"
)

func testSetup(t *testing.T, cfg config.TrainingConfig) (*environment.CVRPEnv, *agent.QLearningAgent) {
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

	a, err := agent.NewQLearningAgent(
		agent.WithSeed(7),
		agent.WithLearningRate(cfg.LearningRate),
		agent.WithDiscountFactor(cfg.DiscountFactor),
		agent.WithEpsilon(cfg.Epsilon),
		agent.WithEpsilonDecay(cfg.EpsilonDecay),
		agent.WithEpsilonMin(cfg.EpsilonMin),
	)
	require.NoError(t, err)

	return environment.NewCVRPEnv(inst), a
}

func smokeConfig() config.TrainingConfig {
	return config.TrainingConfig{
		Episodes:         200,
		LearningRate:     0.1,
		DiscountFactor:   0.95,
		Epsilon:          1.0,
		EpsilonDecay:     0.99,
		EpsilonMin:       0.01,
		ProgressInterval: 50,
	}
}

func TestTrainingSmoke(t *testing.T) {
	cfg := smokeConfig()
	env, a := testSetup(t, cfg)
	exp := NewTrainingExperiment("smoke", cfg, env, a)

	require.NoError(t, exp.Run(context.Background()))

	status := exp.GetStatus()
	assert.False(t, status.Running)
	assert.False(t, status.EndTime.Before(status.StartTime))

	history := exp.History()
	require.Len(t, history, cfg.Episodes)
	assert.Equal(t, 1, history[0].Episode)
	assert.Equal(t, cfg.Episodes, history[len(history)-1].Episode)

	// Every episode on this instance can be completed, so a best valid
	// solution must exist.
	best, ok := exp.Result()
	require.True(t, ok)
	assert.Positive(t, best.Distance)
	assert.NotEmpty(t, best.Routes)

	// Epsilon decayed once per episode.
	assert.Less(t, a.GetStatistics().Epsilon, 1.0)
}

func TestBestDistanceNeverIncreases(t *testing.T) {
	cfg := smokeConfig()
	env, a := testSetup(t, cfg)
	exp := NewTrainingExperiment("monotone", cfg, env, a)

	require.NoError(t, exp.Run(context.Background()))

	prev := 0.0
	for _, result := range exp.History() {
		if result.BestDistance == 0 {
			continue
		}
		if prev != 0 {
			assert.LessOrEqual(t, result.BestDistance, prev)
		}
		prev = result.BestDistance
	}
	assert.NotZero(t, prev)
}

func TestRunPublishesProgress(t *testing.T) {
	cfg := smokeConfig()
	cfg.Episodes = 100
	cfg.ProgressInterval = 25
	env, a := testSetup(t, cfg)

	broker := messaging.NewBroker()
	events := make(chan messaging.Event, 16)
	require.NoError(t, broker.Subscribe("test", events))

	exp := NewTrainingExperiment("progress", cfg, env, a, WithBroker(broker))
	require.NoError(t, exp.Run(context.Background()))
	close(events)

	var episodes, summaries int
	for evt := range events {
		assert.Equal(t, exp.RunID(), evt.RunID)
		switch evt.Type {
		case messaging.EventEpisode:
			episodes++
			_, ok := evt.Payload.(core.EpisodeResult)
			assert.True(t, ok)
		case messaging.EventSummary:
			summaries++
		}
	}
	assert.Equal(t, 4, episodes)
	assert.Equal(t, 1, summaries)
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := smokeConfig()
	cfg.Episodes = 1000000
	env, a := testSetup(t, cfg)
	exp := NewTrainingExperiment("cancel", cfg, env, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exp.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, exp.GetStatus().Running)
}

func TestGapAgainstReference(t *testing.T) {
	cfg := smokeConfig()
	env, a := testSetup(t, cfg)

	ref := &core.Solution{
		Routes:   [][]int{{0, 1, 2, 0}, {0, 3, 0}},
		Distance: 5.0,
	}
	exp := NewTrainingExperiment("gap", cfg, env, a, WithReference(ref))

	_, ok := exp.Gap()
	assert.False(t, ok, "no gap before a solution exists")

	require.NoError(t, exp.Run(context.Background()))

	gap, ok := exp.Gap()
	require.True(t, ok)
	best, _ := exp.Result()
	assert.InDelta(t, (best.Distance-5)/5*100, gap, 1e-9)
}
