package cvrp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/boristopalov/cvrpq/pkg/core"
)

// Instance validation errors. These abort a run before training starts;
// everything that can go wrong after this point is a reward outcome, not
// a Go error.
var (
	ErrNoCoordinates   = errors.New("cvrp: instance has no node coordinates")
	ErrNoDemands       = errors.New("cvrp: instance has no demands")
	ErrMissingCapacity = errors.New("cvrp: capacity must be positive")
	ErrUnknownDepot    = errors.New("cvrp: depot id has no coordinates")
)

// Point is a 2D node coordinate
type Point struct {
	X float64
	Y float64
}

// Instance is an immutable CVRP problem: node coordinates, per-node
// demands, a depot, a vehicle capacity, and a precomputed symmetric
// distance matrix. An optional reference solution is carried for gap
// reporting and never mutated by training.
type Instance struct {
	Name      string
	Nodes     map[int]Point
	Demands   map[int]float64
	DepotID   int
	Capacity  float64
	Reference *core.Solution

	distances map[int]map[int]float64
	customers []int
}

// NewInstance validates the problem data and precomputes the distance
// matrix. It fails fast on malformed input.
func NewInstance(name string, nodes map[int]Point, demands map[int]float64, depotID int, capacity float64) (*Instance, error) {
	if len(nodes) == 0 {
		return nil, ErrNoCoordinates
	}
	if len(demands) == 0 {
		return nil, ErrNoDemands
	}
	if capacity <= 0 {
		return nil, ErrMissingCapacity
	}
	if _, ok := nodes[depotID]; !ok {
		return nil, ErrUnknownDepot
	}
	for id := range nodes {
		if id == depotID {
			continue
		}
		if _, ok := demands[id]; !ok {
			return nil, fmt.Errorf("cvrp: node %d has no demand", id)
		}
	}

	inst := &Instance{
		Name:     name,
		Nodes:    nodes,
		Demands:  demands,
		DepotID:  depotID,
		Capacity: capacity,
	}
	inst.buildDistances()
	inst.buildCustomers()
	return inst, nil
}

func (inst *Instance) buildDistances() {
	inst.distances = make(map[int]map[int]float64, len(inst.Nodes))
	for i, pi := range inst.Nodes {
		row := make(map[int]float64, len(inst.Nodes))
		for j, pj := range inst.Nodes {
			row[j] = EuclideanDistance(pi, pj)
		}
		inst.distances[i] = row
	}
}

func (inst *Instance) buildCustomers() {
	inst.customers = make([]int, 0, len(inst.Nodes)-1)
	for id := range inst.Nodes {
		if id != inst.DepotID {
			inst.customers = append(inst.customers, id)
		}
	}
	sort.Ints(inst.customers)
}

// Distance returns the precomputed distance between two nodes
func (inst *Instance) Distance(i, j int) float64 {
	return inst.distances[i][j]
}

// Customers returns the customer ids (every node except the depot) in
// ascending order. The returned slice is shared; callers must not modify it.
func (inst *Instance) Customers() []int {
	return inst.customers
}

// Demand returns the demand of a node; the depot's demand is 0
func (inst *Instance) Demand(id int) float64 {
	if id == inst.DepotID {
		return 0
	}
	return inst.Demands[id]
}

// RouteDistance sums the edge distances along a route
func (inst *Instance) RouteDistance(route []int) float64 {
	if len(route) < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < len(route)-1; i++ {
		total += inst.Distance(route[i], route[i+1])
	}
	return total
}

// EuclideanDistance returns the straight-line distance between two points
func EuclideanDistance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
