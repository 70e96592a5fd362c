package environment

import (
	"sort"

	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/cvrp"
)

const (
	// invalidPenalty is the fixed reward for an illegal action or an
	// infeasible complete solution. The episode ends either way.
	invalidPenalty = -1000.0
	// validRewardScale divided by the total distance is the terminal reward
	// for a feasible solution, so shorter feasible tours always score higher.
	validRewardScale = 1000.0
)

// CVRPEnv models route construction as a sequential decision process.
// Vehicles are implicit: one continuous episode builds successive
// depot-to-depot sub-routes until every customer is served.
type CVRPEnv struct {
	instance *cvrp.Instance

	currentNode       int
	currentLoad       float64
	unvisited         map[int]struct{}
	currentRoute      []int
	allRoutes         [][]int
	totalDistance     float64
	lastDepotVisitIdx int

	best    core.Solution
	hasBest bool
}

// NewCVRPEnv creates an environment for one problem instance. The
// environment owns all episode state; the instance is never mutated.
func NewCVRPEnv(inst *cvrp.Instance) *CVRPEnv {
	env := &CVRPEnv{instance: inst}
	env.Reset()
	return env
}

// Reset restores all episode state and returns the initial state. It is
// safe to call repeatedly; best-solution tracking survives resets.
func (e *CVRPEnv) Reset() core.State {
	e.currentNode = e.instance.DepotID
	e.currentLoad = 0
	e.unvisited = make(map[int]struct{}, len(e.instance.Customers()))
	for _, id := range e.instance.Customers() {
		e.unvisited[id] = struct{}{}
	}
	e.currentRoute = []int{e.instance.DepotID}
	e.allRoutes = nil
	e.totalDistance = 0
	e.lastDepotVisitIdx = 0
	return e.GetState()
}

// GetState returns the current state: current node, load, sorted unvisited
// customers, the active sub-route, and an at-depot flag
func (e *CVRPEnv) GetState() core.State {
	unvisited := make([]int, 0, len(e.unvisited))
	for id := range e.unvisited {
		unvisited = append(unvisited, id)
	}
	sort.Ints(unvisited)

	active := make([]int, len(e.currentRoute)-e.lastDepotVisitIdx)
	copy(active, e.currentRoute[e.lastDepotVisitIdx:])

	return core.State{
		CurrentNode: e.currentNode,
		Load:        e.currentLoad,
		Unvisited:   unvisited,
		ActiveRoute: active,
		AtDepot:     e.currentNode == e.instance.DepotID,
	}
}

// GetValidMoves returns every unvisited customer that still fits in the
// vehicle, plus the depot when closing the active sub-route is allowed:
// not already at the depot, at least one customer served since the last
// departure, and either no customer fits or all customers are served.
// Returning to the depot while feasible customers remain is not offered,
// so the agent cannot close a sub-route prematurely.
func (e *CVRPEnv) GetValidMoves() []int {
	moves := make([]int, 0, len(e.unvisited)+1)
	for _, id := range e.instance.Customers() {
		if _, ok := e.unvisited[id]; !ok {
			continue
		}
		if e.currentLoad+e.instance.Demand(id) <= e.instance.Capacity {
			moves = append(moves, id)
		}
	}

	visitedSinceDepot := len(e.currentRoute) - e.lastDepotVisitIdx - 1
	canReturn := e.currentNode != e.instance.DepotID &&
		visitedSinceDepot > 0 &&
		(len(moves) == 0 || len(e.unvisited) == 0)
	if canReturn {
		moves = append(moves, e.instance.DepotID)
	}
	return moves
}

// Step applies an action. An action outside the current valid-move set
// terminates the episode with the fixed invalid penalty; this is a reward
// outcome, not an error. For legal moves the reward is the negated edge
// distance, except at completion where the full solution is validated and
// rewarded inversely to its total distance.
func (e *CVRPEnv) Step(action int) (core.State, float64, bool) {
	if !e.isValidMove(action) {
		return e.GetState(), invalidPenalty, true
	}

	distance := e.instance.Distance(e.currentNode, action)
	e.totalDistance += distance

	e.currentNode = action
	if action != e.instance.DepotID {
		e.currentLoad += e.instance.Demand(action)
		delete(e.unvisited, action)
	} else {
		e.currentLoad = 0
		e.lastDepotVisitIdx = len(e.currentRoute)
	}
	e.currentRoute = append(e.currentRoute, action)

	done := len(e.unvisited) == 0 && e.currentNode == e.instance.DepotID
	if !done {
		return e.GetState(), -distance, false
	}

	e.closeRoutes()
	if !e.validateSolution() {
		return e.GetState(), invalidPenalty, true
	}

	reward := validRewardScale / e.totalDistance
	if !e.hasBest || e.totalDistance < e.best.Distance {
		e.best = core.Solution{
			Routes:   copyRoutes(e.allRoutes),
			Distance: e.totalDistance,
		}
		e.hasBest = true
	}
	return e.GetState(), reward, true
}

// closeRoutes splits the episode walk into depot-to-depot sub-routes
func (e *CVRPEnv) closeRoutes() {
	e.allRoutes = nil
	depot := e.instance.DepotID
	start := 0
	for i := 1; i < len(e.currentRoute); i++ {
		if e.currentRoute[i] != depot {
			continue
		}
		sub := make([]int, i-start+1)
		copy(sub, e.currentRoute[start:i+1])
		e.allRoutes = append(e.allRoutes, sub)
		start = i
	}
}

// RenderRoute returns the concatenation of all closed sub-routes with a
// single final depot visit, and the recomputed total distance, for
// reporting
func (e *CVRPEnv) RenderRoute() ([]int, float64) {
	depot := e.instance.DepotID
	var complete []int
	for _, route := range e.allRoutes {
		if len(route) == 0 {
			continue
		}
		complete = append(complete, route[:len(route)-1]...)
	}
	if len(complete) == 0 {
		return []int{depot}, 0
	}
	complete = append(complete, depot)
	return complete, e.instance.RouteDistance(complete)
}

// BestSolution returns the lowest-distance valid solution seen across all
// episodes since construction
func (e *CVRPEnv) BestSolution() (core.Solution, bool) {
	if !e.hasBest {
		return core.Solution{}, false
	}
	return core.Solution{
		Routes:   copyRoutes(e.best.Routes),
		Distance: e.best.Distance,
	}, true
}

// Instance exposes the underlying problem for reporting
func (e *CVRPEnv) Instance() *cvrp.Instance {
	return e.instance
}

func (e *CVRPEnv) isValidMove(action int) bool {
	for _, m := range e.GetValidMoves() {
		if m == action {
			return true
		}
	}
	return false
}

func copyRoutes(routes [][]int) [][]int {
	out := make([][]int, len(routes))
	for i, r := range routes {
		out[i] = make([]int, len(r))
		copy(out[i], r)
	}
	return out
}
