// This file adds a lightweight linter for Pipeline values. It performs
// static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "aggregations[1].metrics[0].op"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error where one is expected.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var (
	knownFieldTypes = map[string]struct{}{
		"int": {}, "text": {}, "date": {}, "category": {}, "url": {},
	}
	knownNormalizeSteps = map[string]struct{}{
		"trim": {}, "title_case": {}, "iso_date": {},
	}
	knownDeriveKinds = map[string]struct{}{
		"bucket": {}, "scale": {}, "concat": {},
	}
	knownMetricOps = map[string]struct{}{
		"count": {}, "sum": {}, "mean": {}, "median": {}, "distinct_count": {}, "min": {}, "max": {},
	}
	knownCheckOps = map[string]struct{}{
		"isComplete": {}, "isInteger": {}, "isInRange": {},
		"isInValues": {}, "matchesLayout": {}, "areUnique": {},
	}
	knownStorageKinds = map[string]struct{}{
		"csvfile": {}, "sqlite": {}, "postgres": {}, "none": {},
	}
)

// ValidateConfig performs static validation of a Pipeline.
//
// It does not mutate the pipeline. It returns a slice of Issue values;
// callers decide whether to treat warnings as fatal.
func ValidateConfig(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics for the run",
		})
	}

	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateContract(p)...)
	issues = append(issues, validateClean(p)...)
	issues = append(issues, validateDerive(p)...)
	issues = append(issues, validateAggregations(p)...)
	issues = append(issues, validateQuality(p)...)
	issues = append(issues, validateReport(p)...)
	issues = append(issues, validateStorage(p.Storage)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "":
		issues = append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.file.path", "file source requires a non-empty path"})
		}
	case "http":
		if strings.TrimSpace(s.HTTP.URL) == "" {
			issues = append(issues, Issue{SeverityError, "source.http.url", "http source requires a non-empty url"})
		}
	default:
		issues = append(issues, Issue{
			SeverityError, "source.kind",
			fmt.Sprintf("unknown source kind %q (want file or http)", s.Kind),
		})
	}
	return issues
}

func validateContract(p Pipeline) []Issue {
	var issues []Issue

	if len(p.Contract.Fields) == 0 {
		issues = append(issues, Issue{SeverityError, "contract.fields", "contract must declare at least one field"})
		return issues
	}
	seen := map[string]struct{}{}
	for i, f := range p.Contract.Fields {
		path := fmt.Sprintf("contract.fields[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "field name must not be empty"})
			continue
		}
		if _, dup := seen[f.Name]; dup {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate field %q", f.Name)})
		}
		seen[f.Name] = struct{}{}
		if _, ok := knownFieldTypes[f.Type]; !ok {
			issues = append(issues, Issue{
				SeverityError, path + ".type",
				fmt.Sprintf("unknown field type %q (want int, text, date, category, or url)", f.Type),
			})
		}
		if f.Type == "category" && len(f.Enum) == 0 {
			issues = append(issues, Issue{
				SeverityWarning, path + ".enum",
				fmt.Sprintf("category field %q has no enum; membership cannot be enforced", f.Name),
			})
		}
	}
	return issues
}

func validateClean(p Pipeline) []Issue {
	var issues []Issue

	for _, k := range p.Clean.DedupeKey {
		if _, ok := p.Contract.Field(k); !ok {
			issues = append(issues, Issue{
				SeverityError, "clean.dedupe_key",
				fmt.Sprintf("dedupe key field %q is not declared in the contract", k),
			})
		}
	}
	for name, rule := range p.Clean.Fields {
		path := fmt.Sprintf("clean.fields[%s]", name)
		if _, ok := p.Contract.Field(name); !ok {
			issues = append(issues, Issue{
				SeverityWarning, path,
				fmt.Sprintf("rule targets field %q not declared in the contract", name),
			})
		}
		for _, step := range rule.Normalize {
			if _, ok := knownNormalizeSteps[step]; !ok {
				issues = append(issues, Issue{
					SeverityError, path + ".normalize",
					fmt.Sprintf("unknown normalize step %q (want trim, title_case, or iso_date)", step),
				})
			}
		}
	}
	return issues
}

func validateDerive(p Pipeline) []Issue {
	var issues []Issue

	for i, d := range p.Derive {
		path := fmt.Sprintf("derive[%d]", i)
		if _, ok := knownDeriveKinds[d.Kind]; !ok {
			issues = append(issues, Issue{
				SeverityError, path + ".kind",
				fmt.Sprintf("unknown derivation kind %q (want bucket, scale, or concat)", d.Kind),
			})
		}
		if strings.TrimSpace(d.Target) == "" {
			issues = append(issues, Issue{SeverityError, path + ".target", "derivation target must not be empty"})
		}
	}
	return issues
}

func validateAggregations(p Pipeline) []Issue {
	var issues []Issue

	names := map[string]struct{}{}
	for i, a := range p.Aggregations {
		path := fmt.Sprintf("aggregations[%d]", i)
		if strings.TrimSpace(a.Name) == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "aggregation name must not be empty"})
		} else if _, dup := names[a.Name]; dup {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate aggregation name %q", a.Name)})
		}
		names[a.Name] = struct{}{}
		if len(a.GroupBy) == 0 {
			issues = append(issues, Issue{SeverityError, path + ".group_by", "group_by must list at least one field"})
		}
		if len(a.Metrics) == 0 {
			issues = append(issues, Issue{SeverityError, path + ".metrics", "metrics must list at least one reducer"})
		}
		for j, m := range a.Metrics {
			mpath := fmt.Sprintf("%s.metrics[%d]", path, j)
			if _, ok := knownMetricOps[m.Op]; !ok {
				issues = append(issues, Issue{
					SeverityError, mpath + ".op",
					fmt.Sprintf("unknown metric op %q", m.Op),
				})
			}
			if m.Op != "count" && strings.TrimSpace(m.Field) == "" {
				issues = append(issues, Issue{
					SeverityError, mpath + ".field",
					fmt.Sprintf("metric op %q requires a field", m.Op),
				})
			}
		}
	}
	return issues
}

func validateQuality(p Pipeline) []Issue {
	var issues []Issue

	for i, c := range p.Quality.Checks {
		path := fmt.Sprintf("quality.checks[%d]", i)
		if _, ok := knownCheckOps[c.Op]; !ok {
			issues = append(issues, Issue{
				SeverityError, path + ".op",
				fmt.Sprintf("unknown check op %q", c.Op),
			})
			continue
		}
		switch c.Op {
		case "areUnique":
			if len(c.Fields) == 0 {
				issues = append(issues, Issue{SeverityError, path + ".fields", "areUnique requires at least one field"})
			}
		case "isInRange":
			if c.Field == "" {
				issues = append(issues, Issue{SeverityError, path + ".field", "isInRange requires a field"})
			}
			if c.Min == nil && c.Max == nil {
				issues = append(issues, Issue{SeverityError, path, "isInRange requires min and/or max"})
			}
		case "isInValues":
			if c.Field == "" {
				issues = append(issues, Issue{SeverityError, path + ".field", "isInValues requires a field"})
			}
			if len(c.Values) == 0 {
				issues = append(issues, Issue{SeverityWarning, path + ".values", "isInValues with no values rejects every non-empty value"})
			}
		default:
			if c.Field == "" {
				issues = append(issues, Issue{SeverityError, path + ".field", fmt.Sprintf("%s requires a field", c.Op)})
			}
		}
	}
	return issues
}

func validateReport(p Pipeline) []Issue {
	var issues []Issue

	aggs := map[string]struct{}{}
	for _, a := range p.Aggregations {
		aggs[a.Name] = struct{}{}
	}

	if p.Report.RankBy.Aggregation != "" {
		if _, ok := aggs[p.Report.RankBy.Aggregation]; !ok {
			issues = append(issues, Issue{
				SeverityError, "report.rank_by.aggregation",
				fmt.Sprintf("rank_by references unknown aggregation %q", p.Report.RankBy.Aggregation),
			})
		}
	}
	for i, c := range p.Report.Charts {
		path := fmt.Sprintf("report.charts[%d]", i)
		if _, ok := aggs[c.Aggregation]; !ok {
			issues = append(issues, Issue{
				SeverityError, path + ".aggregation",
				fmt.Sprintf("chart references unknown aggregation %q", c.Aggregation),
			})
		}
		if c.Kind != "bar" && c.Kind != "barh" {
			issues = append(issues, Issue{
				SeverityError, path + ".kind",
				fmt.Sprintf("unknown chart kind %q (want bar or barh)", c.Kind),
			})
		}
		if strings.TrimSpace(c.File) == "" {
			issues = append(issues, Issue{SeverityError, path + ".file", "chart file must not be empty"})
		}
	}
	if corr := p.Report.Correlation; corr != nil {
		if len(corr.RowKey) == 0 {
			issues = append(issues, Issue{SeverityError, "report.correlation.row_key", "correlation requires at least one row_key field"})
		}
		if strings.TrimSpace(corr.Column) == "" {
			issues = append(issues, Issue{SeverityError, "report.correlation.column", "correlation column must not be empty"})
		}
		if strings.TrimSpace(corr.File) == "" {
			issues = append(issues, Issue{SeverityError, "report.correlation.file", "correlation file must not be empty"})
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if s.Kind == "" {
		// No sink is legal; the cleaned table is still reported on.
		return issues
	}
	if _, ok := knownStorageKinds[s.Kind]; !ok {
		issues = append(issues, Issue{
			SeverityError, "storage.kind",
			fmt.Sprintf("unknown storage kind %q (want csvfile, sqlite, postgres, or none)", s.Kind),
		})
		return issues
	}
	switch s.Kind {
	case "csvfile":
		if strings.TrimSpace(s.CSV.Path) == "" {
			issues = append(issues, Issue{SeverityError, "storage.csv.path", "csvfile sink requires a path"})
		}
	case "sqlite", "postgres":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "storage.db.dsn", s.Kind + " sink requires a dsn"})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{SeverityError, "storage.db.table", s.Kind + " sink requires a table"})
		}
	}
	return issues
}
