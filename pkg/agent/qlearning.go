package agent

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/memory"
)

// repeatPenalty is subtracted from an action's value during exploitation
// once it has been chosen maxConsecutiveActions times in a row, to break
// oscillation between the same few moves.
const repeatPenalty = 1000.0

type AgentParams struct {
	AgentID               string
	LearningRate          float64
	DiscountFactor        float64
	Epsilon               float64
	EpsilonDecay          float64
	EpsilonMin            float64
	MaxConsecutiveActions int
	Seed                  int64
}

type AgentOption func(*AgentParams)

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

func WithLearningRate(lr float64) AgentOption {
	return func(p *AgentParams) {
		p.LearningRate = lr
	}
}

func WithDiscountFactor(gamma float64) AgentOption {
	return func(p *AgentParams) {
		p.DiscountFactor = gamma
	}
}

func WithEpsilon(eps float64) AgentOption {
	return func(p *AgentParams) {
		p.Epsilon = eps
	}
}

func WithEpsilonDecay(decay float64) AgentOption {
	return func(p *AgentParams) {
		p.EpsilonDecay = decay
	}
}

func WithEpsilonMin(min float64) AgentOption {
	return func(p *AgentParams) {
		p.EpsilonMin = min
	}
}

func WithSeed(seed int64) AgentOption {
	return func(p *AgentParams) {
		p.Seed = seed
	}
}

func WithMaxConsecutiveActions(n int) AgentOption {
	return func(p *AgentParams) {
		p.MaxConsecutiveActions = n
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		AgentID:               "agent-" + uuid.New().String(),
		LearningRate:          0.1,
		DiscountFactor:        0.95,
		Epsilon:               1.0,
		EpsilonDecay:          0.995,
		EpsilonMin:            0.01,
		MaxConsecutiveActions: 3,
		Seed:                  time.Now().UnixNano(),
	}
}

// QLearningAgent learns a sparse (state, action) value table with one-step
// tabular Q-learning and selects actions epsilon-greedily. The agent never
// recomputes legality itself; callers supply the legal action set.
type QLearningAgent struct {
	id     string
	qtable *memory.QTable
	rng    *rand.Rand

	learningRate   float64
	discountFactor float64
	epsilon        float64
	epsilonDecay   float64
	epsilonMin     float64

	totalActions int

	// Short-term memory for the anti-thrash guard. Bounded agent-internal
	// state, not part of the learned table.
	lastAction             int
	consecutiveSameActions int
	maxConsecutiveActions  int
}

// NewQLearningAgent creates a new Q-learning agent
func NewQLearningAgent(opts ...AgentOption) (*QLearningAgent, error) {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}

	if params.LearningRate <= 0 || params.LearningRate > 1 {
		return nil, fmt.Errorf("agent: learning rate %v outside (0,1]", params.LearningRate)
	}
	if params.DiscountFactor < 0 || params.DiscountFactor > 1 {
		return nil, fmt.Errorf("agent: discount factor %v outside [0,1]", params.DiscountFactor)
	}
	if params.Epsilon < 0 || params.Epsilon > 1 {
		return nil, fmt.Errorf("agent: epsilon %v outside [0,1]", params.Epsilon)
	}
	if params.MaxConsecutiveActions < 1 {
		return nil, fmt.Errorf("agent: max consecutive actions %d must be at least 1", params.MaxConsecutiveActions)
	}

	return &QLearningAgent{
		id:                    params.AgentID,
		qtable:                memory.NewQTable(),
		rng:                   rand.New(rand.NewSource(params.Seed)),
		learningRate:          params.LearningRate,
		discountFactor:        params.DiscountFactor,
		epsilon:               params.Epsilon,
		epsilonDecay:          params.EpsilonDecay,
		epsilonMin:            params.EpsilonMin,
		lastAction:            core.NoAction,
		maxConsecutiveActions: params.MaxConsecutiveActions,
	}, nil
}

func (a *QLearningAgent) GetID() string {
	return a.id
}

// ChooseAction picks an action from validMoves using an epsilon-greedy
// policy. With probability epsilon a uniformly random legal action is
// taken; otherwise the highest-valued action wins, with the last action
// penalized once it has repeated maxConsecutiveActions times. Returns
// core.NoAction when validMoves is empty; callers must abort the episode.
func (a *QLearningAgent) ChooseAction(state core.State, validMoves []int) int {
	if len(validMoves) == 0 {
		return core.NoAction
	}
	a.totalActions++

	if a.rng.Float64() < a.epsilon {
		action := validMoves[a.rng.Intn(len(validMoves))]
		a.trackRepeat(action)
		return action
	}

	key := state.Key()
	best := validMoves[0]
	bestValue := a.exploitValue(key, validMoves[0])
	for _, action := range validMoves[1:] {
		if v := a.exploitValue(key, action); v > bestValue {
			best = action
			bestValue = v
		}
	}
	a.trackRepeat(best)
	return best
}

func (a *QLearningAgent) exploitValue(stateKey string, action int) float64 {
	v := a.qtable.Get(stateKey, action)
	if action == a.lastAction && a.consecutiveSameActions >= a.maxConsecutiveActions {
		v -= repeatPenalty
	}
	return v
}

func (a *QLearningAgent) trackRepeat(action int) {
	if action == a.lastAction {
		a.consecutiveSameActions++
	} else {
		a.consecutiveSameActions = 0
	}
	a.lastAction = action
}

// Update applies the one-step Q-learning rule:
//
//	Q(s,a) += lr * (r + gamma*max_a' Q(s',a') - Q(s,a))
//
// The bootstrap term is 0 for terminal transitions (no next legal moves).
func (a *QLearningAgent) Update(state core.State, action int, reward float64, nextState core.State, nextValidMoves []int) {
	key := state.Key()
	nextMax := a.qtable.MaxOver(nextState.Key(), nextValidMoves)
	current := a.qtable.Get(key, action)
	a.qtable.Set(key, action, current+a.learningRate*(reward+a.discountFactor*nextMax-current))
}

// DecayEpsilon shrinks the exploration rate geometrically, never below the
// configured floor. Called once per completed episode.
func (a *QLearningAgent) DecayEpsilon() {
	a.epsilon = a.epsilon * a.epsilonDecay
	if a.epsilon < a.epsilonMin {
		a.epsilon = a.epsilonMin
	}
}

// GetStatistics returns the agent's run counters
func (a *QLearningAgent) GetStatistics() core.Statistics {
	return core.Statistics{
		Epsilon:      a.epsilon,
		TotalActions: a.totalActions,
		QTableSize:   a.qtable.Size(),
	}
}
