// Package schema defines the data contract a loaded table is held against:
// field names, declared types, required flags, and category vocabularies.
package schema

import (
	"fmt"
	"strings"
)

// ISODate is the canonical date layout used across the pipeline.
const ISODate = "2006-01-02"

// Field describes one column of the contract.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // "int" | "text" | "date" | "category" | "url"
	Required bool     `json:"required,omitempty"`
	Enum     []string `json:"enum,omitempty"`    // allowed values for "category"
	Layout   string   `json:"layout,omitempty"`  // date layout; defaults to ISODate
	Default  any      `json:"default,omitempty"` // fill value for coercion failures
}

// Contract is the declared schema for one dataset.
type Contract struct {
	Name      string            `json:"name"`
	Fields    []Field           `json:"fields"`
	HeaderMap map[string]string `json:"header_map,omitempty"`
}

// Field returns the contract field with the given canonical name.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required returns the names of all required fields in declaration order.
func (c Contract) Required() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Names returns all field names in declaration order.
func (c Contract) Names() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// SchemaMismatch is the fatal load-time error raised when required contract
// columns are missing from the input header. It aborts the run; every other
// data problem is reported and survived.
type SchemaMismatch struct {
	Contract string
	Missing  []string
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch for %q: required columns missing from header: %s",
		e.Contract, strings.Join(e.Missing, ", "))
}

// CheckHeader verifies that every required contract field appears among the
// canonical header names. Returns a *SchemaMismatch listing all absentees,
// or nil when the header satisfies the contract.
func (c Contract) CheckHeader(headers []string) error {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	var missing []string
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		if _, ok := present[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &SchemaMismatch{Contract: c.Name, Missing: missing}
	}
	return nil
}

// DefaultFor returns the safe fallback value for a field whose raw value
// failed to parse as the declared type: the configured Default when present,
// otherwise the type's zero-ish value (0 for int, "" for text/url/category,
// "" for date). Coercions to this value are counted, never fatal.
func (f Field) DefaultFor() any {
	if f.Default != nil {
		// JSON numbers decode as float64; ints are the common case here.
		if n, ok := f.Default.(float64); ok && f.Type == "int" {
			return int64(n)
		}
		return f.Default
	}
	switch f.Type {
	case "int":
		return int64(0)
	default:
		return ""
	}
}
