package probe

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestInferType(t *testing.T) {
	cases := []struct {
		name string
		col  []string
		want string
	}{
		{"ints", []string{"1", "2", "300"}, "int"},
		{"dates iso", []string{"2024-01-01", "2024-02-02"}, "date"},
		{"dates us", []string{"01/15/2024", "02/20/2024"}, "date"},
		{"urls", []string{"https://a.example", "http://b.example"}, "url"},
		{"mixed", []string{"1", "x", "2024-01-01"}, "text"},
		{"all empty", []string{"", ""}, "text"},
		{"category", []string{"a", "b", "a", "b", "a", "b"}, "category"},
		{"high cardinality", []string{"a", "b", "c", "d", "e", "f"}, "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := inferType(tc.col, 3)
			if got != tc.want {
				t.Fatalf("inferType(%v): got %q want %q", tc.col, got, tc.want)
			}
		})
	}
}

func TestInferTypeCategoryVocabulary(t *testing.T) {
	_, enum := inferType([]string{"Pool", "Playground", "Pool", "Playground"}, 12)
	// First-appearance order.
	if !reflect.DeepEqual(enum, []string{"Pool", "Playground"}) {
		t.Fatalf("enum: got %v", enum)
	}
}

func TestProbeFileURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.csv")
	body := "park_id,name,facility_type,facility_count,advisory_url\n" +
		"1,Stanley Park,Playground,12,https://vancouver.ca/a\n" +
		"2,Queen Elizabeth Park,Pool,3,https://vancouver.ca/b\n" +
		"3,Kitsilano Beach Park,Playground,1,https://vancouver.ca/c\n" +
		"4,John Hendry Park,Pool,2,https://vancouver.ca/d\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Probe(context.Background(), Options{
		URL:  "file://" + path,
		Name: "parks",
	})
	if err != nil {
		t.Fatal(err)
	}

	if p.Job != "parks" || p.Source.Kind != "file" || p.Source.File.Path != path {
		t.Fatalf("pipeline header wrong: %+v", p)
	}

	types := map[string]string{}
	for _, f := range p.Contract.Fields {
		types[f.Name] = f.Type
	}
	want := map[string]string{
		"park_id":        "int",
		"name":           "text",
		"facility_type":  "category",
		"facility_count": "int",
		"advisory_url":   "url",
	}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("inferred types: got %v want %v", types, want)
	}

	// Every fully populated sampled column is marked required.
	for _, f := range p.Contract.Fields {
		if !f.Required {
			t.Fatalf("field %q should be required in a gap-free sample", f.Name)
		}
	}

	// Int columns get a zero fill rule.
	if p.Clean.Fields["facility_count"].FillMissing != 0 {
		t.Fatalf("facility_count fill rule: %+v", p.Clean.Fields["facility_count"])
	}

	if p.Storage.Kind != "csvfile" || p.Storage.CSV.Path != "parks_cleaned.csv" {
		t.Fatalf("storage: %+v", p.Storage)
	}
}

func TestProbeTruncatedTrailingRow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.csv")
	// No trailing newline: the partial last line is cut before inference.
	body := "park_id,name\n1,Stanley Park\n2,Queen Eliz"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Probe(context.Background(), Options{URL: "file://" + path, Name: "parks"})
	if err != nil {
		t.Fatal(err)
	}
	f, ok := p.Contract.Field("park_id")
	if !ok || f.Type != "int" {
		t.Fatalf("park_id: %+v ok=%v", f, ok)
	}
}

func TestProbeMissingFile(t *testing.T) {
	p, err := Probe(context.Background(), Options{URL: "file:///nonexistent", Name: "x"})
	if err == nil {
		t.Fatalf("expected fetch error, got pipeline %+v", p)
	}
}

func TestNormalizeHeaders(t *testing.T) {
	got := normalizeHeaders([]string{"\ufeffPark ID", " Name ", "FACILITY TYPE"})
	want := []string{"park_id", "name", "facility_type"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
