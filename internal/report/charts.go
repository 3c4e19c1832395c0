package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"

	"parkfacts/internal/aggregate"
	"parkfacts/internal/config"
)

// RenderCharts writes each configured chart as a PNG under outDir. Charts
// whose aggregation produced no groups are skipped with a warning rather
// than failing the run.
func RenderCharts(outDir string, specs []config.ChartSpec, results []aggregate.Result, defaultTopN int) error {
	if len(specs) == 0 {
		return nil
	}
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	byName := make(map[string]aggregate.Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	for _, spec := range specs {
		res, ok := byName[spec.Aggregation]
		if !ok {
			return fmt.Errorf("chart %s: unknown aggregation %q", spec.File, spec.Aggregation)
		}
		n := spec.TopN
		if n == 0 {
			n = defaultTopN
		}
		ranked := Rank(res, spec.Metric, n)
		if len(ranked.Entries) == 0 {
			logrus.WithField("chart", spec.File).Warn("no groups to plot; skipping chart")
			continue
		}
		path := filepath.Join(outDir, spec.File)
		if err := renderOne(path, spec, ranked); err != nil {
			return fmt.Errorf("chart %s: %w", spec.File, err)
		}
		logrus.WithFields(logrus.Fields{"chart": path, "groups": len(ranked.Entries)}).Info("chart rendered")
	}
	return nil
}

func renderOne(path string, spec config.ChartSpec, ranked Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch spec.Kind {
	case "barh":
		bars := make([]chart.StackedBar, 0, len(ranked.Entries))
		for _, e := range ranked.Entries {
			bars = append(bars, chart.StackedBar{
				Name:   e.Label,
				Values: []chart.Value{{Value: e.Value, Label: fmt.Sprintf("%.6g", e.Value)}},
			})
		}
		height := 64 * len(bars)
		if height < 256 {
			height = 256
		}
		sbc := chart.StackedBarChart{
			Title:        spec.Title,
			Width:        1024,
			Height:       height,
			IsHorizontal: true,
			Bars:         bars,
		}
		return sbc.Render(chart.PNG, f)

	default: // "bar"
		values := make([]chart.Value, 0, len(ranked.Entries))
		for _, e := range ranked.Entries {
			values = append(values, chart.Value{Label: e.Label, Value: e.Value})
		}
		bc := chart.BarChart{
			Title:    spec.Title,
			Width:    1024,
			Height:   512,
			BarWidth: 48,
			Bars:     values,
		}
		return bc.Render(chart.PNG, f)
	}
}
