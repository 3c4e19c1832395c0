// Package records defines the row representation shared by every pipeline
// stage. A Record is a loosely typed field map; the schema contract declares
// the intended types and the cleaner/aggregator enforce them.
package records

import (
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Record is a single row keyed by canonical field name. Values are nil,
// string, int64, float64, bool, or time.Time after coercion.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Empty reports whether the value for field is absent: missing key, nil, or
// the empty string.
func (r Record) Empty(field string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return true
	}
	s, isStr := v.(string)
	return isStr && s == ""
}

// String renders a value as its canonical string form. nil renders as "".
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return ""
	}
}

// KeyHash hashes the tuple of the named fields into a stable 64-bit key.
// Field values are joined on 0x1f so adjacent fields can't collide; nil is
// encoded as 0x00 to distinguish it from the empty string. The second return
// is false when any key field is missing from the record entirely.
func (r Record) KeyHash(fields []string) (uint64, bool) {
	h := xxh3.New()
	for i, f := range fields {
		v, ok := r[f]
		if !ok {
			return 0, false
		}
		if i > 0 {
			_, _ = h.Write([]byte{0x1f})
		}
		if v == nil {
			_, _ = h.Write([]byte{0x00})
			continue
		}
		_, _ = h.WriteString(String(v))
	}
	return h.Sum64(), true
}
