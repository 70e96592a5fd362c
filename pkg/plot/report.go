// Package plot renders a training run as a self-contained HTML page:
// learned routes against the reference solution, plus the best-distance
// convergence curve.
package plot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/cvrp"
)

// WriteReport renders the charts for one run to an HTML file. reference
// may be nil; history may be empty.
func WriteReport(path string, inst *cvrp.Instance, learned core.Solution, reference *core.Solution, history []core.EpisodeResult) error {
	page := components.NewPage()
	page.AddCharts(
		routeChart(fmt.Sprintf("Learned Routes (%.2f)", learned.Distance), inst, learned),
	)
	if reference != nil {
		page.AddCharts(
			routeChart(fmt.Sprintf("Reference Routes (%.2f)", reference.Distance), inst, *reference),
		)
	}
	if len(history) > 0 {
		page.AddCharts(convergenceChart(history, reference))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("plot: create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot: create report: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("plot: render report: %w", err)
	}
	return nil
}

// routeChart draws each depot-to-depot sub-route as its own series on a
// value XY plane
func routeChart(title string, inst *cvrp.Instance, sol core.Solution) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
	)

	for i, route := range sol.Routes {
		items := make([]opts.LineData, 0, len(route))
		for _, node := range route {
			p := inst.Nodes[node]
			items = append(items, opts.LineData{Value: []interface{}{p.X, p.Y}})
		}
		line.AddSeries(fmt.Sprintf("Route %d", i+1), items)
	}
	return line
}

// convergenceChart plots the best valid distance per recorded episode,
// with the reference distance as a flat line when available
func convergenceChart(history []core.EpisodeResult, reference *core.Solution) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Best Distance by Episode",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	episodes := make([]string, 0, len(history))
	best := make([]opts.LineData, 0, len(history))
	ref := make([]opts.LineData, 0, len(history))
	for _, result := range history {
		episodes = append(episodes, fmt.Sprintf("%d", result.Episode))
		best = append(best, opts.LineData{Value: result.BestDistance})
		if reference != nil {
			ref = append(ref, opts.LineData{Value: reference.Distance})
		}
	}

	line = line.SetXAxis(episodes)
	line.AddSeries("best distance", best)
	if reference != nil {
		line.AddSeries("reference", ref)
	}
	return line
}
