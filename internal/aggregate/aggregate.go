// Package aggregate groups a cleaned table by categorical keys and reduces
// each group to summary statistics. Group iteration order is the order of
// each key's first appearance in the table, not sorted order, so output is
// reproducible across runs on the same input.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"parkfacts/internal/config"
	"parkfacts/internal/derive"
	"parkfacts/pkg/records"
)

// Result is the outcome of one aggregation: an ordered list of groups that
// partition the input table (every row lands in exactly one group).
type Result struct {
	// Name is the aggregation's configured name.
	Name string

	// GroupBy echoes the grouping fields.
	GroupBy []string

	// Metrics lists the output metric names in configured order.
	Metrics []string

	// Groups holds one entry per distinct key tuple, first-appearance order.
	Groups []Group
}

// Group is one key tuple with its reduced metrics.
type Group struct {
	// Key holds the group's field values, aligned with GroupBy.
	Key []string

	// Rows is the group's row membership count.
	Rows int

	// Values maps metric name -> reduced value.
	Values map[string]float64
}

// Label renders the key tuple for display.
func (g Group) Label() string { return strings.Join(g.Key, " / ") }

// MetricName resolves a metric's output column name: As when set, the op for
// count, op_field otherwise.
func MetricName(m config.Metric) string {
	if m.As != "" {
		return m.As
	}
	if m.Op == "count" {
		return "count"
	}
	return m.Op + "_" + m.Field
}

// accumulator carries the running state for one group's reducers.
type accumulator struct {
	rows     int
	sums     map[string]float64
	counts   map[string]int // non-missing numeric observations per field
	mins     map[string]float64
	maxs     map[string]float64
	obs      map[string][]float64 // retained observations for median
	distinct map[string]map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		sums:     map[string]float64{},
		counts:   map[string]int{},
		mins:     map[string]float64{},
		maxs:     map[string]float64{},
		obs:      map[string][]float64{},
		distinct: map[string]map[string]struct{}{},
	}
}

// Aggregate reduces the table per the aggregation config. Rows always belong
// to exactly one group; a nil group-key value participates as the empty
// string rather than being excluded, preserving the partition property.
func Aggregate(table []records.Record, agg config.Aggregation) (Result, error) {
	res := Result{Name: agg.Name, GroupBy: agg.GroupBy}
	if len(agg.GroupBy) == 0 {
		return res, fmt.Errorf("aggregate %q: group_by must not be empty", agg.Name)
	}
	for _, m := range agg.Metrics {
		res.Metrics = append(res.Metrics, MetricName(m))
	}

	type slot struct {
		key []string
		acc *accumulator
	}
	var order []string
	slots := map[string]*slot{}

	for _, rec := range table {
		key := make([]string, len(agg.GroupBy))
		for i, f := range agg.GroupBy {
			key[i] = records.String(rec[f])
		}
		mapKey := strings.Join(key, "\x1f")

		s, ok := slots[mapKey]
		if !ok {
			s = &slot{key: key, acc: newAccumulator()}
			slots[mapKey] = s
			order = append(order, mapKey)
		}
		s.acc.observe(rec, agg.Metrics)
	}

	for _, mapKey := range order {
		s := slots[mapKey]
		g := Group{
			Key:    s.key,
			Rows:   s.acc.rows,
			Values: make(map[string]float64, len(agg.Metrics)),
		}
		for _, m := range agg.Metrics {
			g.Values[MetricName(m)] = s.acc.reduce(m)
		}
		res.Groups = append(res.Groups, g)
	}
	return res, nil
}

// observe folds one row into the accumulator for every configured metric.
func (a *accumulator) observe(rec records.Record, metrics []config.Metric) {
	a.rows++
	for _, m := range metrics {
		switch m.Op {
		case "count":
			// row membership only
		case "distinct_count":
			if rec.Empty(m.Field) {
				continue
			}
			set, ok := a.distinct[m.Field]
			if !ok {
				set = map[string]struct{}{}
				a.distinct[m.Field] = set
			}
			set[records.String(rec[m.Field])] = struct{}{}
		case "median":
			// Median has no streaming form; keep the observations and
			// reduce at finalize.
			if v, ok := derive.Numeric(rec[m.Field]); ok {
				a.obs[m.Field] = append(a.obs[m.Field], v)
			}
		default: // sum, mean, min, max
			v, ok := derive.Numeric(rec[m.Field])
			if !ok {
				continue
			}
			if a.counts[m.Field] == 0 || v < a.mins[m.Field] {
				a.mins[m.Field] = v
			}
			if a.counts[m.Field] == 0 || v > a.maxs[m.Field] {
				a.maxs[m.Field] = v
			}
			a.sums[m.Field] += v
			a.counts[m.Field]++
		}
	}
}

// reduce finalizes one metric's value.
func (a *accumulator) reduce(m config.Metric) float64 {
	switch m.Op {
	case "count":
		return float64(a.rows)
	case "sum":
		return a.sums[m.Field]
	case "mean":
		if a.counts[m.Field] == 0 {
			return 0
		}
		return a.sums[m.Field] / float64(a.counts[m.Field])
	case "min":
		return a.mins[m.Field]
	case "max":
		return a.maxs[m.Field]
	case "median":
		return median(a.obs[m.Field])
	case "distinct_count":
		return float64(len(a.distinct[m.Field]))
	default:
		return 0
	}
}

// median returns the middle observation, or the mean of the middle two for an
// even count. Empty input reduces to 0, like the other numeric reducers.
func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	s := make([]float64, len(vs))
	copy(s, vs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
