// Package vrpfile reads TSPLIB-style CVRP instance files and the plain-text
// solution files distributed alongside them (CVRPLIB format).
package vrpfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/cvrp"
)

type section int

const (
	sectionNone section = iota
	sectionCoords
	sectionDemands
	sectionDepot
)

// ParseInstance reads a TSPLIB-style .vrp stream: CAPACITY,
// NODE_COORD_SECTION, DEMAND_SECTION, DEPOT_SECTION, EOF. The returned
// instance is validated and carries a precomputed distance matrix.
func ParseInstance(r io.Reader, name string) (*cvrp.Instance, error) {
	nodes := make(map[int]cvrp.Point)
	demands := make(map[int]float64)
	capacity := 0.0
	// Depot defaults to node 1, the convention in CVRPLIB instances.
	depotID := 1

	scanner := bufio.NewScanner(r)
	current := sectionNone
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "NAME"):
			if _, after, ok := strings.Cut(line, ":"); ok {
				name = strings.TrimSpace(after)
			}
			continue
		case strings.HasPrefix(line, "CAPACITY"):
			fields := strings.Fields(line)
			v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil {
				return nil, fmt.Errorf("vrpfile: bad capacity line %q: %w", line, err)
			}
			capacity = v
			continue
		case strings.HasPrefix(line, "NODE_COORD_SECTION"):
			current = sectionCoords
			continue
		case strings.HasPrefix(line, "DEMAND_SECTION"):
			current = sectionDemands
			continue
		case strings.HasPrefix(line, "DEPOT_SECTION"):
			current = sectionDepot
			continue
		case strings.HasPrefix(line, "EOF"):
			current = sectionNone
			continue
		}

		switch current {
		case sectionCoords:
			parts := strings.Fields(line)
			if len(parts) < 3 {
				continue
			}
			id, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			x, errX := strconv.ParseFloat(parts[1], 64)
			y, errY := strconv.ParseFloat(parts[2], 64)
			if errX != nil || errY != nil {
				return nil, fmt.Errorf("vrpfile: bad coordinate line %q", line)
			}
			nodes[id] = cvrp.Point{X: x, Y: y}
		case sectionDemands:
			parts := strings.Fields(line)
			if len(parts) < 2 {
				continue
			}
			id, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			d, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("vrpfile: bad demand line %q", line)
			}
			demands[id] = d
		case sectionDepot:
			id, err := strconv.Atoi(line)
			if err != nil || id < 0 {
				// -1 terminates the depot section
				continue
			}
			depotID = id
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vrpfile: read instance: %w", err)
	}

	return cvrp.NewInstance(name, nodes, demands, depotID, capacity)
}

// ParseSolution reads a CVRPLIB .sol stream: one "Route #k: c1 c2 ..."
// line per route (customers only) and a trailing "Cost <value>" line. The
// depot is added at both ends of every route.
func ParseSolution(r io.Reader, depotID int) (*core.Solution, error) {
	sol := &core.Solution{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Route"):
			_, after, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("vrpfile: bad route line %q", line)
			}
			route := []int{depotID}
			for _, tok := range strings.Fields(after) {
				id, err := strconv.Atoi(tok)
				if err != nil {
					return nil, fmt.Errorf("vrpfile: bad route line %q: %w", line, err)
				}
				route = append(route, id)
			}
			route = append(route, depotID)
			sol.Routes = append(sol.Routes, route)
		case strings.HasPrefix(line, "Cost") || strings.HasPrefix(line, "cost"):
			fields := strings.Fields(line)
			v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil {
				return nil, fmt.Errorf("vrpfile: bad cost line %q: %w", line, err)
			}
			sol.Distance = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vrpfile: read solution: %w", err)
	}

	if len(sol.Routes) == 0 {
		return nil, fmt.Errorf("vrpfile: solution has no routes")
	}
	return sol, nil
}

// LoadInstance parses a .vrp file from disk
func LoadInstance(path string) (*cvrp.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vrpfile: open instance: %w", err)
	}
	defer f.Close()
	return ParseInstance(f, strings.TrimSuffix(baseName(path), ".vrp"))
}

// LoadSolution parses a .sol file from disk
func LoadSolution(path string, depotID int) (*core.Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vrpfile: open solution: %w", err)
	}
	defer f.Close()
	return ParseSolution(f, depotID)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
