// Package derive adds computed columns to a cleaned table. Each derivation
// is a pure function of a row's existing fields; applying a derivation whose
// target already exists overwrites it with the same value for the same
// inputs, so re-running a derivation set is a no-op.
package derive

import (
	"fmt"
	"strconv"
	"strings"

	"parkfacts/internal/config"
	"parkfacts/pkg/records"
)

// Derivation computes one target field from a record's existing fields.
// Implementations must not read or write any field other than their inputs
// and target.
type Derivation interface {
	Target() string
	Value(rec records.Record) any
}

// Compile turns derivation configs into executable derivations. Unknown
// kinds and missing parameters are configuration errors.
func Compile(cfgs []config.Derivation) ([]Derivation, error) {
	out := make([]Derivation, 0, len(cfgs))
	for i, d := range cfgs {
		var (
			dv  Derivation
			err error
		)
		switch d.Kind {
		case "bucket":
			dv, err = newBucket(d)
		case "scale":
			dv, err = newScale(d)
		case "concat":
			dv, err = newConcat(d)
		default:
			err = fmt.Errorf("unknown derivation kind %q", d.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("derive[%d]: %w", i, err)
		}
		out = append(out, dv)
	}
	return out, nil
}

// Apply writes every derivation's value into its target field, row by row.
// Only target fields are touched.
func Apply(table []records.Record, ds []Derivation) {
	for _, rec := range table {
		for _, d := range ds {
			rec[d.Target()] = d.Value(rec)
		}
	}
}

// bucket maps a numeric field into ordinal range labels. With bounds
// [b0, b1, ..., bn] and labels [l0, ..., ln+1], a value v gets l0 when
// v < b0, l1 when b0 <= v < b1, and ln+1 when v >= bn.
type bucket struct {
	target string
	field  string
	bounds []float64
	labels []string
	other  string // label for non-numeric values
}

func newBucket(d config.Derivation) (*bucket, error) {
	b := &bucket{
		target: d.Target,
		field:  d.Options.String("field", ""),
		bounds: d.Options.FloatSlice("bounds"),
		labels: d.Options.StringSlice("labels"),
		other:  d.Options.String("other", "unknown"),
	}
	if b.field == "" {
		return nil, fmt.Errorf("bucket: field is required")
	}
	if len(b.bounds) == 0 {
		return nil, fmt.Errorf("bucket: bounds are required")
	}
	if len(b.labels) != len(b.bounds)+1 {
		return nil, fmt.Errorf("bucket: want %d labels for %d bounds, got %d",
			len(b.bounds)+1, len(b.bounds), len(b.labels))
	}
	return b, nil
}

func (b *bucket) Target() string { return b.target }

func (b *bucket) Value(rec records.Record) any {
	v, ok := Numeric(rec[b.field])
	if !ok {
		return b.other
	}
	for i, bound := range b.bounds {
		if v < bound {
			return b.labels[i]
		}
	}
	return b.labels[len(b.labels)-1]
}

// scale multiplies a numeric field by a constant factor (unit conversion).
type scale struct {
	target string
	field  string
	factor float64
}

func newScale(d config.Derivation) (*scale, error) {
	s := &scale{
		target: d.Target,
		field:  d.Options.String("field", ""),
		factor: d.Options.Float("factor", 0),
	}
	if s.field == "" {
		return nil, fmt.Errorf("scale: field is required")
	}
	if s.factor == 0 {
		return nil, fmt.Errorf("scale: factor must be non-zero")
	}
	return s, nil
}

func (s *scale) Target() string { return s.target }

func (s *scale) Value(rec records.Record) any {
	v, ok := Numeric(rec[s.field])
	if !ok {
		return nil
	}
	return v * s.factor
}

// concat joins field values with a separator, producing composite labels.
type concat struct {
	target string
	fields []string
	sep    string
}

func newConcat(d config.Derivation) (*concat, error) {
	c := &concat{
		target: d.Target,
		fields: d.Options.StringSlice("fields"),
		sep:    d.Options.String("sep", " "),
	}
	if len(c.fields) == 0 {
		return nil, fmt.Errorf("concat: fields are required")
	}
	return c, nil
}

func (c *concat) Target() string { return c.target }

func (c *concat) Value(rec records.Record) any {
	parts := make([]string, len(c.fields))
	for i, f := range c.fields {
		parts[i] = records.String(rec[f])
	}
	return strings.Join(parts, c.sep)
}

// Numeric extracts a float64 from the common value types a cleaned record
// holds. Strings are parsed as a convenience for underdeclared columns.
func Numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
