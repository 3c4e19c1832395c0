// Package config defines the declarative, serializable configuration model
// for a pipeline run. A pipeline file enumerates, as data rather than code,
// the source to load, the schema contract, the cleaning rules, the derived
// columns, the aggregations, the quality checks, the report, and the sink.
//
// Design goals:
//
//  1. Configuration-as-data: cleaning and validation rules are a tagged set
//     of variants interpreted by the stage implementations, so a run is fully
//     described by one document.
//  2. Clarity: Go field names mirror the JSON structure used in pipeline
//     files under configs/*.json.
//  3. Tolerance: free-form option bags are accessed through the typed Options
//     helper, with defaults for absent or mistyped keys.
//
// Example (trimmed):
//
//	{
//	  "job":    "park_facilities",
//	  "source": { "kind": "file", "file": { "path": "park_facilities.csv" } },
//	  "contract": { "name": "park_facilities", "fields": [...] },
//	  "clean":  { "dedupe_key": ["park_id","facility_type"], "fields": { ... } },
//	  "derive": [ { "kind": "bucket", "target": "count_band", "options": {...} } ],
//	  "aggregations": [ { "name": "by_type", "group_by": ["facility_type"], "metrics": [...] } ],
//	  "quality": { "checks": [ { "op": "isComplete", "field": "park_id" } ] },
//	  "report": { "top_n": 10, "charts": [...] },
//	  "storage": { "kind": "csvfile", "csv": { "path": "park_facilities_cleaned.csv" } }
//	}
package config

import (
	"encoding/json"

	"parkfacts/internal/schema"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels logs and metrics.
	Job string `json:"job"`

	// Source describes where the input bytes come from.
	Source Source `json:"source"`

	// Loader configures delimited parsing of the source.
	Loader Loader `json:"loader"`

	// Contract is the declared schema the loaded table is checked against.
	Contract schema.Contract `json:"contract"`

	// Clean holds the per-field cleaning rules and the dedupe key.
	Clean CleanRules `json:"clean"`

	// Derive lists the derived-column definitions applied after cleaning.
	Derive []Derivation `json:"derive"`

	// Aggregations lists the grouped statistics computed from the cleaned table.
	Aggregations []Aggregation `json:"aggregations"`

	// Quality configures the standalone validation pass and the optional gate.
	Quality Quality `json:"quality"`

	// Report configures the narrative summary and chart rendering.
	Report Report `json:"report"`

	// Storage selects the sink the cleaned table is written to.
	Storage Storage `json:"storage"`
}

// Source identifies the data source.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" kind.
	File SourceFile `json:"file"`

	// HTTP carries options for the "http" kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind. Municipal open
// data portals commonly serve dataset exports directly over HTTPS.
type SourceHTTP struct {
	URL string `json:"url"`

	// InsecureSkipTLS disables certificate verification; only for internal
	// or self-signed endpoints.
	InsecureSkipTLS bool `json:"insecure_skip_tls,omitempty"`
}

// Loader configures delimited parsing.
type Loader struct {
	// Comma is the field delimiter as a one-character string; "," when empty.
	Comma string `json:"comma,omitempty"`

	// TrimSpace trims ASCII space around each raw field value.
	TrimSpace bool `json:"trim_space,omitempty"`
}

// CleanRules enumerates, per field, how missing values and normalization are
// handled, plus the key by which duplicate rows are collapsed.
type CleanRules struct {
	// DedupeKey is the set of fields whose tuple identifies a row. Duplicate
	// rows sharing the tuple collapse to the first-seen occurrence. Rows
	// missing a value for any key field are dropped.
	DedupeKey []string `json:"dedupe_key,omitempty"`

	// Fields maps field name -> rule.
	Fields map[string]FieldRule `json:"fields,omitempty"`
}

// FieldRule is the cleaning rule for a single field.
type FieldRule struct {
	// FillMissing is either a literal default value used to fill absent
	// values, or the sentinel string "drop_row" to drop the whole row.
	FillMissing any `json:"fill_missing,omitempty"`

	// Normalize lists normalization steps applied in order:
	// "trim", "title_case", "iso_date". A value that fails a step is passed
	// through unchanged and counted, never rejected.
	Normalize []string `json:"normalize,omitempty"`
}

// DropRow is the FillMissing sentinel that drops rows instead of filling.
const DropRow = "drop_row"

// Derivation defines one derived column. Kind selects the implementation
// ("bucket", "scale", "concat"); Options is interpreted by it.
type Derivation struct {
	Kind    string  `json:"kind"`
	Target  string  `json:"target"`
	Options Options `json:"options"`
}

// Aggregation defines one grouped statistic over the cleaned table.
type Aggregation struct {
	// Name identifies the aggregation for reporting.
	Name string `json:"name"`

	// GroupBy is the ordered list of categorical fields forming the group key.
	GroupBy []string `json:"group_by"`

	// Metrics lists the reducers computed per group.
	Metrics []Metric `json:"metrics"`
}

// Metric is a single reducer over one field.
type Metric struct {
	// Field the reducer reads. Ignored for "count".
	Field string `json:"field,omitempty"`

	// Op is one of: "count", "sum", "mean", "median", "distinct_count",
	// "min", "max".
	Op string `json:"op"`

	// As optionally renames the output column; defaults to op or op_field.
	As string `json:"as,omitempty"`
}

// Quality configures the standalone validation pass.
type Quality struct {
	// Checks are the rule operations evaluated over the cleaned table.
	Checks []Check `json:"checks,omitempty"`

	// FailOnViolations turns quality findings into a hard gate: the run
	// exits non-zero when any check reports violations. Off by default;
	// checks only report.
	FailOnViolations bool `json:"fail_on_violations,omitempty"`
}

// Check is one quality rule. Op selects the predicate; the remaining fields
// parameterize it. Recognized ops: "isComplete", "isInteger", "isInRange",
// "isInValues", "matchesLayout", "areUnique".
type Check struct {
	Op     string   `json:"op"`
	Field  string   `json:"field,omitempty"`
	Fields []string `json:"fields,omitempty"` // areUnique key tuple
	Min    *float64 `json:"min,omitempty"`    // isInRange
	Max    *float64 `json:"max,omitempty"`    // isInRange
	Values []string `json:"values,omitempty"` // isInValues
	Layout string   `json:"layout,omitempty"` // matchesLayout; ISO when empty
}

// Report configures summary ranking and chart output.
type Report struct {
	// TopN bounds the ranked group list; 10 when zero.
	TopN int `json:"top_n,omitempty"`

	// RankBy names the aggregation and metric used for the narrative ranking.
	RankBy RankBy `json:"rank_by"`

	// OutDir receives chart images and the summary text; "." when empty.
	OutDir string `json:"out_dir,omitempty"`

	// Charts lists the static images rendered from aggregations.
	Charts []ChartSpec `json:"charts,omitempty"`

	// Correlation, when set, cross-tabulates the cleaned table and writes
	// the column correlation matrix as CSV alongside the summary.
	Correlation *Correlation `json:"correlation,omitempty"`
}

// Correlation configures the co-occurrence analysis: the cleaned table is
// pivoted (one row per RowKey tuple, one column per distinct Column value,
// cells summing Value) and the Pearson correlation between the pivot's
// columns is written to File under Report.OutDir.
type Correlation struct {
	// RowKey is the pivot's row identity, e.g. ["park_id"].
	RowKey []string `json:"row_key"`

	// Column is the categorical field whose values become pivot columns.
	Column string `json:"column"`

	// Value is the numeric field summed into cells; rows are counted when
	// empty.
	Value string `json:"value,omitempty"`

	// File is the output CSV filename, relative to Report.OutDir.
	File string `json:"file"`
}

// RankBy selects the metric the narrative summary ranks groups by.
type RankBy struct {
	Aggregation string `json:"aggregation"`
	Metric      string `json:"metric"`
}

// ChartSpec describes one rendered chart image.
type ChartSpec struct {
	// Aggregation names the Aggregation whose result is plotted.
	Aggregation string `json:"aggregation"`

	// Metric names the plotted metric column.
	Metric string `json:"metric"`

	// Kind is "bar" or "barh".
	Kind string `json:"kind"`

	// Title is the chart title.
	Title string `json:"title,omitempty"`

	// File is the output image filename (PNG), relative to Report.OutDir.
	File string `json:"file"`

	// TopN bounds the plotted groups; Report.TopN when zero.
	TopN int `json:"top_n,omitempty"`
}

// Storage selects the sink for the cleaned table.
type Storage struct {
	// Kind selects the sink: "csvfile", "sqlite", "postgres", or "none".
	Kind string `json:"kind"`

	// CSV carries options for the "csvfile" kind.
	CSV StorageCSV `json:"csv"`

	// DB carries options for the database kinds.
	DB DBConfig `json:"db"`
}

// StorageCSV configures the delimited-file sink.
type StorageCSV struct {
	// Path of the output file.
	Path string `json:"path"`

	// Comma is the output delimiter as a one-character string; "," when empty.
	Comma string `json:"comma,omitempty"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the connection string (pgx pool DSN, or a sqlite file path/URI).
	DSN string `json:"dsn"`

	// Table is the destination table name.
	Table string `json:"table"`

	// AutoCreateTable creates the destination table from the contract before
	// writing when true.
	AutoCreateTable bool `json:"auto_create_table,omitempty"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal coercion and returns the provided default when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so float64 is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Float returns the float64 value for key or def.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings (or interface values containing strings); nil otherwise.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// FloatSlice returns a []float64 for key when the value is a numeric array;
// nil otherwise. Used for bucket boundaries.
func (o Options) FloatSlice(key string) []float64 {
	v, ok := o[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, x := range arr {
		switch n := x.(type) {
		case float64:
			out = append(out, n)
		case int:
			out = append(out, float64(n))
		}
	}
	return out
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON decodes a missing or null options object to a non-nil,
// empty Options map, removing nil checks at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// CommaRune returns the loader delimiter as a rune, ',' by default.
func (l Loader) CommaRune() rune {
	if l.Comma == "" {
		return ','
	}
	return []rune(l.Comma)[0]
}

// CommaRune returns the sink delimiter as a rune, ',' by default.
func (s StorageCSV) CommaRune() rune {
	if s.Comma == "" {
		return ','
	}
	return []rune(s.Comma)[0]
}
