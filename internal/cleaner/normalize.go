package cleaner

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"parkfacts/internal/schema"
)

var titleCaser = cases.Title(language.English)

// applyStep runs one normalize step over a string value. The second return
// is false when the step does not apply to the value (counted as
// unnormalized by the caller); the value then passes through unchanged.
func applyStep(step, s string, field schema.Field) (string, bool) {
	switch step {
	case "trim":
		// NFC pins composed/decomposed variants to one byte form so that
		// dedupe keys and enum checks compare equal strings.
		return strings.TrimSpace(norm.NFC.String(s)), true

	case "title_case":
		return titleCaser.String(s), true

	case "iso_date":
		layout := field.Layout
		if layout == "" {
			layout = schema.ISODate
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(schema.ISODate), true
		}
		// Common municipal-export layouts before giving up.
		for _, alt := range []string{schema.ISODate, "01/02/2006", "2006/01/02", "02.01.2006"} {
			if t, err := time.Parse(alt, s); err == nil {
				return t.Format(schema.ISODate), true
			}
		}
		return s, false

	default:
		return s, false
	}
}
