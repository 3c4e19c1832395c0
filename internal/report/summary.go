// Package report turns aggregation results into human-facing artifacts: a
// ranked narrative summary and static chart images. It is a thin formatting
// layer over the aggregator's output.
package report

import (
	"fmt"
	"io"
	"sort"

	"parkfacts/internal/aggregate"
	"parkfacts/internal/cleaner"
	"parkfacts/internal/config"
)

// Entry is one ranked group in the narrative summary.
type Entry struct {
	Rank  int
	Label string
	Value float64
}

// Summary is the ranked top-N list for the configured metric.
type Summary struct {
	Aggregation string
	Metric      string
	Entries     []Entry
}

// Rank orders the result's groups by the named metric, descending, keeping
// first-appearance order between ties, and returns the top n entries.
func Rank(res aggregate.Result, metric string, n int) Summary {
	s := Summary{Aggregation: res.Name, Metric: metric}
	if n <= 0 {
		n = 10
	}

	groups := make([]aggregate.Group, len(res.Groups))
	copy(groups, res.Groups)
	// SliceStable keeps input (first-appearance) order for equal values,
	// which is the documented tie-break.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Values[metric] > groups[j].Values[metric]
	})

	if len(groups) > n {
		groups = groups[:n]
	}
	for i, g := range groups {
		s.Entries = append(s.Entries, Entry{
			Rank:  i + 1,
			Label: g.Label(),
			Value: g.Values[metric],
		})
	}
	return s
}

// WriteText renders the full narrative report: cleaning audit, quality
// findings, and the ranked group list.
func WriteText(w io.Writer, job string, s Summary, audit cleaner.Audit, findings []aggregate.Finding) error {
	fmt.Fprintf(w, "Report for %s\n", job)
	fmt.Fprintf(w, "\nCleaning audit:\n")
	fmt.Fprintf(w, "  filled: %d  dropped: %d  deduped: %d  unnormalized: %d  coerced: %d\n",
		audit.Filled, audit.Dropped, audit.Deduped, audit.Unnormalized, audit.Coerced)

	if len(findings) > 0 {
		fmt.Fprintf(w, "\nQuality findings:\n")
		for _, f := range findings {
			target := f.Check.Field
			if f.Check.Op == "areUnique" {
				target = fmt.Sprint(f.Check.Fields)
			}
			fmt.Fprintf(w, "  %-13s %-14s %-24s violations: %d\n",
				f.Dimension, f.Check.Op, target, f.Violations)
		}
	}

	if len(s.Entries) > 0 {
		fmt.Fprintf(w, "\nTop %d by %s (%s):\n", len(s.Entries), s.Metric, s.Aggregation)
		for _, e := range s.Entries {
			fmt.Fprintf(w, "  %2d. %-40s %.6g\n", e.Rank, e.Label, e.Value)
		}
	}
	return nil
}

// Select finds the result the rank_by config points at.
func Select(results []aggregate.Result, rb config.RankBy) (aggregate.Result, bool) {
	for _, r := range results {
		if r.Name == rb.Aggregation {
			return r, true
		}
	}
	return aggregate.Result{}, false
}
