package aggregate

import (
	"time"

	"parkfacts/internal/config"
	"parkfacts/internal/derive"
	"parkfacts/internal/schema"
	"parkfacts/pkg/records"
)

// Dimension is one of the six independent quality axes a table is scored on.
type Dimension string

const (
	Completeness Dimension = "completeness"
	Accuracy     Dimension = "accuracy"
	Consistency  Dimension = "consistency"
	Timeliness   Dimension = "timeliness"
	Validity     Dimension = "validity"
	Uniqueness   Dimension = "uniqueness"
)

// dimensionOf maps each rule operation onto the quality dimension it scores.
var dimensionOf = map[string]Dimension{
	"isComplete":    Completeness,
	"isInteger":     Accuracy,
	"isInValues":    Consistency,
	"matchesLayout": Timeliness,
	"isInRange":     Validity,
	"areUnique":     Uniqueness,
}

// Finding is the outcome of one quality check: how many rows violate it.
type Finding struct {
	Check      config.Check
	Dimension  Dimension
	Violations int
}

// Total sums violations across findings.
func Total(findings []Finding) int {
	n := 0
	for _, f := range findings {
		n += f.Violations
	}
	return n
}

// Validate scores the table against each configured check. It is strictly
// read-only and never fails: unknown ops and inapplicable values simply do
// not count as violations, and calling it twice yields identical findings.
func Validate(table []records.Record, checks []config.Check) []Finding {
	out := make([]Finding, 0, len(checks))
	for _, c := range checks {
		out = append(out, Finding{
			Check:      c,
			Dimension:  dimensionOf[c.Op],
			Violations: violations(table, c),
		})
	}
	return out
}

func violations(table []records.Record, c config.Check) int {
	switch c.Op {
	case "isComplete":
		return countRows(table, func(r records.Record) bool {
			return r.Empty(c.Field)
		})

	case "isInteger":
		return countRows(table, func(r records.Record) bool {
			if r.Empty(c.Field) {
				return false
			}
			switch r[c.Field].(type) {
			case int64, int:
				return false
			}
			_, ok := derive.Numeric(r[c.Field])
			return !ok
		})

	case "isInRange":
		return countRows(table, func(r records.Record) bool {
			if r.Empty(c.Field) {
				return false
			}
			v, ok := derive.Numeric(r[c.Field])
			if !ok {
				return false // accuracy's problem, not validity's
			}
			if c.Min != nil && v < *c.Min {
				return true
			}
			if c.Max != nil && v > *c.Max {
				return true
			}
			return false
		})

	case "isInValues":
		allowed := make(map[string]struct{}, len(c.Values))
		for _, v := range c.Values {
			allowed[v] = struct{}{}
		}
		return countRows(table, func(r records.Record) bool {
			if r.Empty(c.Field) {
				return false
			}
			_, ok := allowed[records.String(r[c.Field])]
			return !ok
		})

	case "matchesLayout":
		layout := c.Layout
		if layout == "" {
			layout = schema.ISODate
		}
		return countRows(table, func(r records.Record) bool {
			if r.Empty(c.Field) {
				return false
			}
			s, isStr := r[c.Field].(string)
			if !isStr {
				return true
			}
			_, err := time.Parse(layout, s)
			return err != nil
		})

	case "areUnique":
		seen := make(map[uint64]struct{}, len(table))
		n := 0
		for _, r := range table {
			h, ok := r.KeyHash(c.Fields)
			if !ok {
				continue
			}
			if _, dup := seen[h]; dup {
				n++
				continue
			}
			seen[h] = struct{}{}
		}
		return n

	default:
		return 0
	}
}

func countRows(table []records.Record, bad func(records.Record) bool) int {
	n := 0
	for _, r := range table {
		if bad(r) {
			n++
		}
	}
	return n
}
