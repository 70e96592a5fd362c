package experiment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/cvrpq/pkg/config"
	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/messaging"
)

// TrainingExperiment drives one environment/agent pair through a fixed
// number of episodes: reset, repeatedly pick and apply actions, feed each
// transition back into the agent, decay epsilon after every episode. The
// best valid solution is retained by the environment.
type TrainingExperiment struct {
	name  string
	runID string
	cfg   config.TrainingConfig

	env    core.Environment
	agent  core.Agent
	broker messaging.Broker

	reference *core.Solution

	mu      sync.RWMutex
	status  core.ExperimentStatus
	history []core.EpisodeResult
}

type ExperimentOption func(*TrainingExperiment)

// WithBroker attaches a progress broker; episode events are published to it
func WithBroker(b messaging.Broker) ExperimentOption {
	return func(e *TrainingExperiment) {
		e.broker = b
	}
}

// WithReference attaches a known-good solution for gap reporting
func WithReference(sol *core.Solution) ExperimentOption {
	return func(e *TrainingExperiment) {
		e.reference = sol
	}
}

// NewTrainingExperiment creates a training run over an environment and agent
func NewTrainingExperiment(name string, cfg config.TrainingConfig, env core.Environment, agent core.Agent, opts ...ExperimentOption) *TrainingExperiment {
	e := &TrainingExperiment{
		name:  name,
		runID: "run-" + uuid.New().String(),
		cfg:   cfg,
		env:   env,
		agent: agent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *TrainingExperiment) RunID() string {
	return e.runID
}

func (e *TrainingExperiment) Name() string {
	return e.name
}

// Run executes the configured number of episodes. It returns early only on
// context cancellation; aborted episodes (empty legal-action set) are
// recorded and training proceeds to the next episode.
func (e *TrainingExperiment) Run(ctx context.Context) error {
	e.mu.Lock()
	e.status.Running = true
	e.status.StartTime = time.Now()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.status.Running = false
		e.status.EndTime = time.Now()
		e.mu.Unlock()
	}()

	return e.runLoop(ctx)
}

func (e *TrainingExperiment) runLoop(ctx context.Context) error {
	for episode := 1; episode <= e.cfg.Episodes; episode++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result := e.runEpisode(episode)

		e.mu.Lock()
		e.history = append(e.history, result)
		e.mu.Unlock()

		e.agent.DecayEpsilon()

		if e.broker != nil && e.cfg.ProgressInterval > 0 && episode%e.cfg.ProgressInterval == 0 {
			e.publish(messaging.EventEpisode, result)
		}
	}

	if e.broker != nil {
		e.publish(messaging.EventSummary, e.lastResult())
	}
	return nil
}

// runEpisode plays one episode to termination (or abort) and returns its
// summary
func (e *TrainingExperiment) runEpisode(episode int) core.EpisodeResult {
	state := e.env.Reset()
	result := core.EpisodeResult{Episode: episode}

	for {
		validMoves := e.env.GetValidMoves()
		action := e.agent.ChooseAction(state, validMoves)
		if action == core.NoAction {
			// Episode cannot proceed; abandon it, not the run.
			break
		}

		nextState, reward, done := e.env.Step(action)
		nextValidMoves := e.env.GetValidMoves()
		e.agent.Update(state, action, reward, nextState, nextValidMoves)

		state = nextState
		result.Steps++
		result.Reward += reward

		if done {
			result.Valid = reward > 0
			break
		}
	}

	_, result.Distance = e.env.RenderRoute()
	result.Epsilon = e.agent.GetStatistics().Epsilon
	if best, ok := e.env.BestSolution(); ok {
		result.BestDistance = best.Distance
	}
	return result
}

func (e *TrainingExperiment) publish(eventType string, result core.EpisodeResult) {
	_ = e.broker.Publish(messaging.Event{
		RunID:     e.runID,
		Type:      eventType,
		Payload:   result,
		Timestamp: time.Now(),
	})
}

func (e *TrainingExperiment) lastResult() core.EpisodeResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.history) == 0 {
		return core.EpisodeResult{}
	}
	return e.history[len(e.history)-1]
}

// GetStatus returns current experiment status
func (e *TrainingExperiment) GetStatus() core.ExperimentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// History returns a copy of all recorded episode results
func (e *TrainingExperiment) History() []core.EpisodeResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]core.EpisodeResult, len(e.history))
	copy(out, e.history)
	return out
}

// Result returns the best valid solution found during training
func (e *TrainingExperiment) Result() (core.Solution, bool) {
	return e.env.BestSolution()
}

// Gap returns the percentage distance gap between the best found solution
// and the reference solution, when both exist
func (e *TrainingExperiment) Gap() (float64, bool) {
	if e.reference == nil || e.reference.Distance <= 0 {
		return 0, false
	}
	best, ok := e.env.BestSolution()
	if !ok {
		return 0, false
	}
	return (best.Distance - e.reference.Distance) / e.reference.Distance * 100, true
}
