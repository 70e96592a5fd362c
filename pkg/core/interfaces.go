package core

import (
	"context"
)

// Environment defines the rules and mechanics of route construction
type Environment interface {
	// Reset restores the environment to initial conditions and returns the initial state
	Reset() State
	// GetState returns the current environment state
	GetState() State
	// GetValidMoves returns the legal actions from the current state (possibly empty)
	GetValidMoves() []int
	// Step applies an action and returns the next state, a reward, and a completion flag
	Step(action int) (State, float64, bool)
	// RenderRoute returns the complete route over all closed sub-routes and its total distance
	RenderRoute() ([]int, float64)
	// BestSolution returns the best valid solution seen so far, if any
	BestSolution() (Solution, bool)
}

// Agent selects actions and learns from environment feedback
type Agent interface {
	// ChooseAction picks an action from the supplied legal set, or NoAction if it is empty
	ChooseAction(state State, validMoves []int) int
	// Update applies one learning step for the given transition
	Update(state State, action int, reward float64, nextState State, nextValidMoves []int)
	// DecayEpsilon decays the exploration rate after a completed episode
	DecayEpsilon()
	// GetStatistics returns current agent statistics
	GetStatistics() Statistics
}

// Experiment coordinates the running of a training run
type Experiment interface {
	// Run executes the experiment according to configuration
	Run(ctx context.Context) error
	// GetStatus returns current experiment status
	GetStatus() ExperimentStatus
}
