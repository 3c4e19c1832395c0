package report

import (
	"os"
	"path/filepath"
	"testing"

	"parkfacts/internal/aggregate"
	"parkfacts/internal/config"
)

func TestRenderChartsWritesPNGs(t *testing.T) {
	dir := t.TempDir()
	specs := []config.ChartSpec{
		{Aggregation: "by_type", Metric: "total", Kind: "barh", Title: "by type", File: "by_type.png"},
		{Aggregation: "by_type", Metric: "total", Kind: "bar", Title: "by type", File: "by_type_v.png", TopN: 2},
	}

	if err := RenderCharts(dir, specs, []aggregate.Result{result()}, 10); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"by_type.png", "by_type_v.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("chart %s not written: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("chart %s is empty", name)
		}
	}
}

func TestRenderChartsUnknownAggregation(t *testing.T) {
	specs := []config.ChartSpec{{Aggregation: "nope", Metric: "total", Kind: "bar", File: "x.png"}}
	if err := RenderCharts(t.TempDir(), specs, []aggregate.Result{result()}, 10); err == nil {
		t.Fatal("expected error for unknown aggregation")
	}
}

func TestRenderChartsSkipsEmpty(t *testing.T) {
	empty := aggregate.Result{Name: "by_type"}
	specs := []config.ChartSpec{{Aggregation: "by_type", Metric: "total", Kind: "bar", File: "x.png"}}
	dir := t.TempDir()
	if err := RenderCharts(dir, specs, []aggregate.Result{empty}, 10); err != nil {
		t.Fatalf("empty aggregation must be skipped, not fatal: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.png")); !os.IsNotExist(err) {
		t.Fatal("chart should not have been written for an empty aggregation")
	}
}
