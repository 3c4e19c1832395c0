package cleaner

import (
	"reflect"
	"testing"

	"parkfacts/internal/config"
	"parkfacts/internal/schema"
	"parkfacts/pkg/records"
)

func contract() schema.Contract {
	return schema.Contract{
		Name: "park_facilities",
		Fields: []schema.Field{
			{Name: "park_id", Type: "int", Required: true},
			{Name: "name", Type: "text", Required: true},
			{Name: "facility_type", Type: "category", Required: true},
			{Name: "facility_count", Type: "int", Default: float64(0)},
			{Name: "last_updated", Type: "date"},
		},
	}
}

func rules() config.CleanRules {
	return config.CleanRules{
		DedupeKey: []string{"park_id", "facility_type"},
		Fields: map[string]config.FieldRule{
			"name":           {FillMissing: config.DropRow, Normalize: []string{"trim", "title_case"}},
			"facility_type":  {Normalize: []string{"trim", "title_case"}},
			"facility_count": {FillMissing: float64(0)},
			"last_updated":   {Normalize: []string{"trim", "iso_date"}},
		},
	}
}

func mk(id any, name, typ string, count any) records.Record {
	return records.Record{
		"park_id": id, "name": name, "facility_type": typ, "facility_count": count,
	}
}

// A duplicate whose only difference is a missing counter collapses to the
// first-seen row: fill runs before dedupe.
func TestCleanFillsBeforeDedupe(t *testing.T) {
	in := []records.Record{
		mk("1", "Stanley Park", "Playground", nil),
		mk("1", "Stanley Park", "Playground", "5"),
	}
	got, audit := New(contract(), rules()).Clean(in)

	if len(got) != 1 {
		t.Fatalf("rows: got %d want 1", len(got))
	}
	if got[0]["facility_count"] != int64(0) {
		t.Fatalf("facility_count: got %#v want int64(0)", got[0]["facility_count"])
	}
	if audit.Filled != 1 || audit.Deduped != 1 {
		t.Fatalf("audit: got %+v want Filled=1 Deduped=1", audit)
	}
}

// After cleaning, no required field holds an absent value.
func TestCleanCompletenessInvariant(t *testing.T) {
	in := []records.Record{
		mk("1", "stanley park", "Playground", "12"),
		mk("2", "", "Pool", "1"),     // name drop_row
		mk(nil, "orphan", "Pool", ""), // missing key field
		mk("3", "kits beach", "Pool", nil),
	}
	got, audit := New(contract(), rules()).Clean(in)

	for _, rec := range got {
		for _, f := range contract().Fields {
			if !f.Required {
				continue
			}
			if rec.Empty(f.Name) {
				t.Fatalf("required field %q absent after clean: %#v", f.Name, rec)
			}
		}
	}
	if audit.Dropped != 2 {
		t.Fatalf("dropped: got %d want 2", audit.Dropped)
	}
	if len(got) != 2 {
		t.Fatalf("rows: got %d want 2", len(got))
	}
}

// A required field with no fill rule cannot stay absent: the row is dropped
// even though the config never says drop_row for it.
func TestCleanDropsRequiredWithoutRule(t *testing.T) {
	r := rules()
	delete(r.Fields, "name") // name stays required, now rule-less

	in := []records.Record{
		{"park_id": "1", "name": nil, "facility_type": "Playground", "facility_count": "2"},
		mk("2", "Queen Elizabeth Park", "Pool", "1"),
	}
	got, audit := New(contract(), r).Clean(in)

	if len(got) != 1 {
		t.Fatalf("rows: got %d want 1", len(got))
	}
	if got[0]["park_id"] != int64(2) {
		t.Fatalf("wrong survivor: %#v", got[0])
	}
	if audit.Dropped != 1 || audit.Filled != 0 {
		t.Fatalf("audit: got %+v want Dropped=1 Filled=0", audit)
	}
}

func TestCleanNormalizeTitleCaseAndTrim(t *testing.T) {
	in := []records.Record{mk("1", "  stanley park  ", " playground ", "1")}
	got, _ := New(contract(), rules()).Clean(in)
	if got[0]["name"] != "Stanley Park" {
		t.Fatalf("name: got %q", got[0]["name"])
	}
	if got[0]["facility_type"] != "Playground" {
		t.Fatalf("facility_type: got %q", got[0]["facility_type"])
	}
}

func TestCleanCoercesBadIntToDefault(t *testing.T) {
	in := []records.Record{mk("1", "Stanley Park", "Playground", "not_a_number")}
	got, audit := New(contract(), rules()).Clean(in)
	if got[0]["facility_count"] != int64(0) {
		t.Fatalf("facility_count: got %#v want int64(0)", got[0]["facility_count"])
	}
	if audit.Coerced != 1 {
		t.Fatalf("coerced: got %d want 1", audit.Coerced)
	}
}

func TestCleanDateHandling(t *testing.T) {
	in := []records.Record{
		{"park_id": "1", "name": "A", "facility_type": "Pool", "facility_count": "1", "last_updated": "03/15/2024"},
		{"park_id": "2", "name": "B", "facility_type": "Pool", "facility_count": "1", "last_updated": "2024-01-10"},
		{"park_id": "3", "name": "C", "facility_type": "Pool", "facility_count": "1", "last_updated": "whenever"},
	}
	got, audit := New(contract(), rules()).Clean(in)

	if got[0]["last_updated"] != "2024-03-15" {
		t.Fatalf("US layout not normalized: %#v", got[0]["last_updated"])
	}
	if got[1]["last_updated"] != "2024-01-10" {
		t.Fatalf("ISO date changed: %#v", got[1]["last_updated"])
	}
	// "whenever" fails iso_date normalization (counted), then fails coercion
	// and lands on the date default.
	if audit.Unnormalized != 1 {
		t.Fatalf("unnormalized: got %d want 1", audit.Unnormalized)
	}
	if got[2]["last_updated"] != "" {
		t.Fatalf("unparseable date: got %#v want \"\"", got[2]["last_updated"])
	}
	if audit.Coerced != 1 {
		t.Fatalf("coerced: got %d want 1", audit.Coerced)
	}
}

func TestCleanDedupeKeepsFirst(t *testing.T) {
	in := []records.Record{
		mk("1", "Stanley Park", "Playground", "5"),
		mk("1", "Stanley Park", "Playground", "9"),
		mk("2", "Queen Elizabeth Park", "Playground", "3"),
	}
	got, audit := New(contract(), rules()).Clean(in)

	if len(got) != 2 {
		t.Fatalf("rows: got %d want 2", len(got))
	}
	if got[0]["facility_count"] != int64(5) {
		t.Fatalf("keep-first violated: got %#v", got[0]["facility_count"])
	}
	if audit.Deduped != 1 {
		t.Fatalf("deduped: got %d want 1", audit.Deduped)
	}

	// No two surviving rows share the key tuple.
	seen := map[uint64]bool{}
	for _, rec := range got {
		h, ok := rec.KeyHash([]string{"park_id", "facility_type"})
		if !ok {
			t.Fatalf("row lost its key fields: %#v", rec)
		}
		if seen[h] {
			t.Fatalf("duplicate key tuple survived: %#v", rec)
		}
		seen[h] = true
	}
}

func TestCleanNoDedupeKeyPassThrough(t *testing.T) {
	r := rules()
	r.DedupeKey = nil
	in := []records.Record{
		mk("1", "A", "Pool", "1"),
		mk("1", "A", "Pool", "1"),
	}
	got, audit := New(contract(), r).Clean(in)
	if len(got) != 2 || audit.Deduped != 0 {
		t.Fatalf("dedupe ran without a key: rows=%d audit=%+v", len(got), audit)
	}
}

func TestApplyStepUnknown(t *testing.T) {
	out, ok := applyStep("upper", "abc", schema.Field{})
	if ok || out != "abc" {
		t.Fatalf("unknown step: got (%q, %v)", out, ok)
	}
}

func TestCleanPreservesOrder(t *testing.T) {
	in := []records.Record{
		mk("3", "C", "Pool", "1"),
		mk("1", "A", "Pool", "1"),
		mk("2", "B", "Pool", "1"),
	}
	got, _ := New(contract(), rules()).Clean(in)
	var ids []any
	for _, rec := range got {
		ids = append(ids, rec["park_id"])
	}
	if !reflect.DeepEqual(ids, []any{int64(3), int64(1), int64(2)}) {
		t.Fatalf("input order not preserved: %v", ids)
	}
}
