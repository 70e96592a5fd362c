package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/cvrp"
)

func TestWriteReport(t *testing.T) {
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

	learned := core.Solution{
		Routes:   [][]int{{0, 1, 2, 0}, {0, 3, 0}},
		Distance: 5.41,
	}
	reference := &core.Solution{
		Routes:   [][]int{{0, 3, 2, 1, 0}},
		Distance: 5.0,
	}
	history := []core.EpisodeResult{
		{Episode: 50, BestDistance: 6.2},
		{Episode: 100, BestDistance: 5.41},
	}

	path := filepath.Join(t.TempDir(), "reports", "run.html")
	require.NoError(t, WriteReport(path, inst, learned, reference, history))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Learned Routes")
	assert.Contains(t, string(data), "Reference Routes")
	assert.Contains(t, string(data), "Best Distance by Episode")
}

func TestWriteReportWithoutReference(t *testing.T) {
	inst, err := cvrp.NewInstance("bare",
		map[int]cvrp.Point{1: {X: 0, Y: 0}, 2: {X: 2, Y: 0}},
		map[int]float64{2: 1},
		1, 5,
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.html")
	err = WriteReport(path, inst, core.Solution{Routes: [][]int{{1, 2, 1}}, Distance: 4}, nil, nil)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
