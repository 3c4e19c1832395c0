package aggregate

import (
	"reflect"
	"testing"

	"parkfacts/internal/config"
	"parkfacts/pkg/records"
)

func row(id int64, typ string, count any) records.Record {
	return records.Record{"park_id": id, "facility_type": typ, "facility_count": count}
}

func table() []records.Record {
	return []records.Record{
		row(1, "Playground", int64(1)),
		row(2, "Pool", int64(2)),
		row(3, "Playground", int64(2)),
		row(4, "Playground", int64(0)),
		row(5, "Tennis Court", int64(6)),
	}
}

func TestAggregateSumByType(t *testing.T) {
	res, err := Aggregate(table(), config.Aggregation{
		Name:    "by_type",
		GroupBy: []string{"facility_type"},
		Metrics: []config.Metric{
			{Op: "count", As: "facilities"},
			{Op: "sum", Field: "facility_count", As: "total"},
			{Op: "mean", Field: "facility_count", As: "avg"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Groups) != 3 {
		t.Fatalf("groups: got %d want 3", len(res.Groups))
	}
	pg := res.Groups[0]
	if pg.Label() != "Playground" {
		t.Fatalf("first group: got %q", pg.Label())
	}
	if pg.Values["total"] != 3 { // 1 + 2 + 0
		t.Fatalf("playground total: got %v want 3", pg.Values["total"])
	}
	if pg.Values["facilities"] != 3 || pg.Values["avg"] != 1 {
		t.Fatalf("playground metrics: %+v", pg.Values)
	}
}

// Group iteration order is first-appearance order, never sorted.
func TestAggregateFirstAppearanceOrder(t *testing.T) {
	res, err := Aggregate(table(), config.Aggregation{
		Name:    "by_type",
		GroupBy: []string{"facility_type"},
		Metrics: []config.Metric{{Op: "count"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	var labels []string
	for _, g := range res.Groups {
		labels = append(labels, g.Label())
	}
	want := []string{"Playground", "Pool", "Tennis Court"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("order: got %v want %v", labels, want)
	}
}

// Group keys partition the table: membership counts sum to the row count,
// and a nil key value participates as the empty string rather than being
// excluded.
func TestAggregatePartition(t *testing.T) {
	in := append(table(), records.Record{"park_id": int64(6), "facility_type": nil, "facility_count": int64(1)})
	res, err := Aggregate(in, config.Aggregation{
		Name:    "by_type",
		GroupBy: []string{"facility_type"},
		Metrics: []config.Metric{{Op: "count"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, g := range res.Groups {
		total += g.Rows
	}
	if total != len(in) {
		t.Fatalf("partition broken: member sum %d != rows %d", total, len(in))
	}
	last := res.Groups[len(res.Groups)-1]
	if last.Label() != "" || last.Rows != 1 {
		t.Fatalf("nil key group: %q rows=%d", last.Label(), last.Rows)
	}
}

func TestAggregateDistinctCountMinMax(t *testing.T) {
	in := []records.Record{
		{"park_id": int64(1), "facility_type": "Playground", "facility_count": int64(5)},
		{"park_id": int64(1), "facility_type": "Pool", "facility_count": int64(2)},
		{"park_id": int64(1), "facility_type": "Pool", "facility_count": nil},
		{"park_id": int64(2), "facility_type": "Pool", "facility_count": int64(9)},
	}
	res, err := Aggregate(in, config.Aggregation{
		Name:    "by_park",
		GroupBy: []string{"park_id"},
		Metrics: []config.Metric{
			{Op: "distinct_count", Field: "facility_type", As: "kinds"},
			{Op: "min", Field: "facility_count", As: "lo"},
			{Op: "max", Field: "facility_count", As: "hi"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	p1 := res.Groups[0]
	if p1.Values["kinds"] != 2 || p1.Values["lo"] != 2 || p1.Values["hi"] != 5 {
		t.Fatalf("park 1: %+v", p1.Values)
	}
	p2 := res.Groups[1]
	if p2.Values["kinds"] != 1 || p2.Values["lo"] != 9 || p2.Values["hi"] != 9 {
		t.Fatalf("park 2: %+v", p2.Values)
	}
}

func TestAggregateMedian(t *testing.T) {
	in := []records.Record{
		{"park_id": int64(1), "facility_type": "Playground", "facility_count": int64(9)},
		{"park_id": int64(1), "facility_type": "Playground", "facility_count": int64(1)},
		{"park_id": int64(1), "facility_type": "Playground", "facility_count": int64(4)},
		{"park_id": int64(2), "facility_type": "Pool", "facility_count": int64(2)},
		{"park_id": int64(2), "facility_type": "Pool", "facility_count": int64(8)},
		{"park_id": int64(3), "facility_type": "Garden", "facility_count": nil},
	}
	res, err := Aggregate(in, config.Aggregation{
		Name:    "by_type",
		GroupBy: []string{"facility_type"},
		Metrics: []config.Metric{{Op: "median", Field: "facility_count", As: "mid"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Odd count picks the middle observation regardless of input order.
	if got := res.Groups[0].Values["mid"]; got != 4 {
		t.Fatalf("playground median: got %v want 4", got)
	}
	// Even count averages the two middle observations.
	if got := res.Groups[1].Values["mid"]; got != 5 {
		t.Fatalf("pool median: got %v want 5", got)
	}
	// No numeric observations reduces to 0, like the other reducers.
	if got := res.Groups[2].Values["mid"]; got != 0 {
		t.Fatalf("garden median: got %v want 0", got)
	}
}

func TestAggregateCompositeKey(t *testing.T) {
	in := []records.Record{
		{"a": "x", "b": "y"},
		{"a": "x", "b": "z"},
		{"a": "x", "b": "y"},
	}
	res, err := Aggregate(in, config.Aggregation{
		Name:    "ab",
		GroupBy: []string{"a", "b"},
		Metrics: []config.Metric{{Op: "count"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("groups: got %d want 2", len(res.Groups))
	}
	if !reflect.DeepEqual(res.Groups[0].Key, []string{"x", "y"}) || res.Groups[0].Rows != 2 {
		t.Fatalf("composite key group: %+v", res.Groups[0])
	}
}

func TestAggregateEmptyGroupBy(t *testing.T) {
	if _, err := Aggregate(table(), config.Aggregation{Name: "bad"}); err == nil {
		t.Fatal("expected error for empty group_by")
	}
}

func TestMetricName(t *testing.T) {
	cases := []struct {
		m    config.Metric
		want string
	}{
		{config.Metric{Op: "count"}, "count"},
		{config.Metric{Op: "sum", Field: "n"}, "sum_n"},
		{config.Metric{Op: "sum", Field: "n", As: "total"}, "total"},
	}
	for _, tc := range cases {
		if got := MetricName(tc.m); got != tc.want {
			t.Fatalf("MetricName(%+v): got %q want %q", tc.m, got, tc.want)
		}
	}
}
