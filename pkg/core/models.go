package core

import (
	"strconv"
	"strings"
	"time"
)

// NoAction is the sentinel returned by an agent when no legal action exists.
// It is never a valid node id.
const NoAction = -1

// State is a snapshot of the environment between steps. Two episodes that
// reach the same logical configuration through different visitation orders
// produce the same state (Unvisited is kept sorted).
type State struct {
	CurrentNode int
	Load        float64
	Unvisited   []int // sorted ascending
	ActiveRoute []int // nodes since the last depot visit, inclusive
	AtDepot     bool
}

// Key returns the canonical serialized form of the state, used to index
// the Q-table. Equal states always serialize to equal keys.
func (s State) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.CurrentNode))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(s.Load, 'g', -1, 64))
	b.WriteByte('|')
	for i, n := range s.Unvisited {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteByte('|')
	for i, n := range s.ActiveRoute {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteByte('|')
	if s.AtDepot {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	return b.String()
}

// Solution is a complete multi-route answer: every sub-route starts and
// ends at the depot.
type Solution struct {
	Routes   [][]int
	Distance float64
}

// EpisodeResult summarizes one completed (or aborted) training episode
type EpisodeResult struct {
	Episode      int
	Steps        int
	Reward       float64
	Distance     float64
	Valid        bool
	Epsilon      float64
	BestDistance float64 // best valid distance seen so far; 0 if none yet
}

// Statistics reports the agent's internal counters
type Statistics struct {
	Epsilon      float64
	TotalActions int
	QTableSize   int
}

type ExperimentStatus struct {
	Running   bool
	StartTime time.Time
	EndTime   time.Time
	Errors    []error
}
