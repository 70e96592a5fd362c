package environment

// validateSolution checks the complete multi-route solution: every
// sub-route starts and ends at the depot, serves at least one customer,
// and stays within capacity; every customer is served exactly once. Any
// violation invalidates the whole episode.
func (e *CVRPEnv) validateSolution() bool {
	depot := e.instance.DepotID
	visited := make(map[int]struct{})

	for _, route := range e.allRoutes {
		if len(route) < 2 || route[0] != depot || route[len(route)-1] != depot {
			return false
		}
		// Depot-only loop: no customers served by this vehicle.
		if len(route) <= 2 {
			return false
		}
		routeDemand := 0.0
		for _, node := range route {
			if node == depot {
				continue
			}
			if _, seen := visited[node]; seen {
				return false
			}
			visited[node] = struct{}{}
			routeDemand += e.instance.Demand(node)
		}
		if routeDemand > e.instance.Capacity {
			return false
		}
	}

	for _, id := range e.instance.Customers() {
		if _, ok := visited[id]; !ok {
			return false
		}
	}
	return len(visited) == len(e.instance.Customers())
}
