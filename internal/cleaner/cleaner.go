// Package cleaner enforces the cleaning rules over a loaded table: value
// normalization, type coercion, missing-value fill, and duplicate collapse.
//
// The order of operations is fixed and load-bearing:
//
//	normalize -> coerce -> fill -> dedupe
//
// Fill runs before dedupe, so two rows that differ only in a missing counter
// value collapse to the first-seen row after the gap is filled. A required
// field that is still absent after its fill rule (or that has none) drops
// the row, so no required field leaves Clean holding an absent value. Coercion
// failures never abort the run: the value is replaced by the field's safe
// default and counted in the Audit (completeness over strict validation;
// callers wanting strictness run the standalone quality checks).
package cleaner

import (
	"strconv"
	"time"

	"parkfacts/internal/config"
	"parkfacts/internal/schema"
	"parkfacts/pkg/records"
)

// Audit counts the rows and values the cleaner touched, for reporting.
type Audit struct {
	// Filled is the number of missing values replaced by a rule default.
	Filled int
	// Dropped is the number of rows removed for a missing key, a drop_row
	// rule, or a required field no rule could fill.
	Dropped int
	// Deduped is the number of duplicate rows collapsed away.
	Deduped int
	// Unnormalized is the number of values a normalize step could not
	// handle; they pass through unchanged.
	Unnormalized int
	// Coerced is the number of values that failed their declared type and
	// were replaced by the safe default.
	Coerced int
}

// Cleaner applies CleanRules against a schema contract.
type Cleaner struct {
	contract schema.Contract
	rules    config.CleanRules
}

// New constructs a Cleaner for the given contract and rules.
func New(contract schema.Contract, rules config.CleanRules) *Cleaner {
	return &Cleaner{contract: contract, rules: rules}
}

// Clean runs the full normalize/coerce/fill/dedupe sequence and returns the
// cleaned table plus the audit counts. Rows are mutated in place; the
// returned slice may be shorter than the input.
func (c *Cleaner) Clean(table []records.Record) ([]records.Record, Audit) {
	var audit Audit

	for _, rec := range table {
		c.normalizeRecord(rec, &audit)
		c.coerceRecord(rec, &audit)
	}

	table = c.fill(table, &audit)
	table = c.dedupe(table, &audit)
	return table, audit
}

// normalizeRecord applies each field's normalize steps in rule order.
func (c *Cleaner) normalizeRecord(rec records.Record, audit *Audit) {
	for name, rule := range c.rules.Fields {
		if len(rule.Normalize) == 0 {
			continue
		}
		v, ok := rec[name]
		if !ok || v == nil {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			continue
		}
		field, _ := c.contract.Field(name)
		for _, step := range rule.Normalize {
			out, ok := applyStep(step, s, field)
			if !ok {
				audit.Unnormalized++
				continue
			}
			s = out
		}
		rec[name] = s
	}
}

// coerceRecord parses raw string values into their declared types. A value
// that fails to parse is replaced by the field's safe default and counted.
func (c *Cleaner) coerceRecord(rec records.Record, audit *Audit) {
	for _, field := range c.contract.Fields {
		v, ok := rec[field.Name]
		if !ok || v == nil {
			continue
		}
		s, isStr := v.(string)
		switch field.Type {
		case "int":
			if !isStr {
				continue // already typed
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				rec[field.Name] = field.DefaultFor()
				audit.Coerced++
				continue
			}
			rec[field.Name] = n
		case "date":
			if !isStr {
				continue
			}
			layout := field.Layout
			if layout == "" {
				layout = schema.ISODate
			}
			t, err := time.Parse(layout, s)
			if err != nil {
				// Accept ISO as a universal fallback before defaulting.
				t, err = time.Parse(schema.ISODate, s)
			}
			if err != nil {
				rec[field.Name] = field.DefaultFor()
				audit.Coerced++
				continue
			}
			rec[field.Name] = t.Format(schema.ISODate)
		default:
			// text, category, url stay as strings
		}
	}
}

// fill replaces missing values per the fill_missing rules and drops rows
// whose missing field is either part of the dedupe key or marked drop_row.
func (c *Cleaner) fill(table []records.Record, audit *Audit) []records.Record {
	key := make(map[string]struct{}, len(c.rules.DedupeKey))
	for _, k := range c.rules.DedupeKey {
		key[k] = struct{}{}
	}

	out := table[:0]
rows:
	for _, rec := range table {
		for _, field := range c.contract.Fields {
			if !rec.Empty(field.Name) {
				continue
			}
			// Key fields cannot be invented; the row goes.
			if _, isKey := key[field.Name]; isKey {
				audit.Dropped++
				continue rows
			}
			rule, hasRule := c.rules.Fields[field.Name]
			if hasRule && rule.FillMissing != nil {
				if s, isStr := rule.FillMissing.(string); isStr && s == config.DropRow {
					audit.Dropped++
					continue rows
				}
				rec[field.Name] = fillValue(rule.FillMissing, field)
				audit.Filled++
				continue
			}
			// No rule can fill a required field: the row goes, whatever the
			// config says. Completeness of required fields is unconditional.
			if field.Required {
				audit.Dropped++
				continue rows
			}
		}
		out = append(out, rec)
	}
	return out
}

// dedupe collapses rows sharing the dedupe-key tuple to the first-seen
// occurrence, preserving input order.
func (c *Cleaner) dedupe(table []records.Record, audit *Audit) []records.Record {
	if len(c.rules.DedupeKey) == 0 {
		return table
	}
	seen := make(map[uint64]struct{}, len(table))
	out := table[:0]
	for _, rec := range table {
		h, ok := rec.KeyHash(c.rules.DedupeKey)
		if !ok {
			// Key field absent from the row entirely; keep as-is.
			out = append(out, rec)
			continue
		}
		if _, dup := seen[h]; dup {
			audit.Deduped++
			continue
		}
		seen[h] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// fillValue converts a configured fill default into the field's value space
// (JSON numbers arrive as float64).
func fillValue(v any, field schema.Field) any {
	if field.Type == "int" {
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int:
			return int64(n)
		case int64:
			return n
		case string:
			if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
				return parsed
			}
			return field.DefaultFor()
		}
	}
	return v
}
