package memory

import "sync"

// QTable is the agent's learned memory: a sparse mapping from
// (state key, action) to a value estimate. Unseen pairs read as 0; the
// entry is materialized on first read so repeated lookups hit the same
// cell (explicit get-or-insert, not an implicit default).
//
// The table is guarded by a RWMutex so independent episodes could share
// it; the reference training loop is single-threaded.
type QTable struct {
	values map[string]map[int]float64
	mu     sync.RWMutex
}

func NewQTable() *QTable {
	return &QTable{
		values: make(map[string]map[int]float64),
	}
}

// Get returns the value estimate for a (state, action) pair, inserting a
// zero entry if the pair has never been seen
func (q *QTable) Get(stateKey string, action int) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, ok := q.values[stateKey]
	if !ok {
		actions = make(map[int]float64)
		q.values[stateKey] = actions
	}
	if _, ok := actions[action]; !ok {
		actions[action] = 0
	}
	return actions[action]
}

// Set stores a value estimate for a (state, action) pair
func (q *QTable) Set(stateKey string, action int, value float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, ok := q.values[stateKey]
	if !ok {
		actions = make(map[int]float64)
		q.values[stateKey] = actions
	}
	actions[action] = value
}

// MaxOver returns the maximum value estimate for the given state over the
// supplied actions, or 0 when the action set is empty (terminal bootstrap)
func (q *QTable) MaxOver(stateKey string, actions []int) float64 {
	if len(actions) == 0 {
		return 0
	}
	best := q.Get(stateKey, actions[0])
	for _, a := range actions[1:] {
		if v := q.Get(stateKey, a); v > best {
			best = v
		}
	}
	return best
}

// Size returns the number of distinct states in the table
func (q *QTable) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.values)
}
