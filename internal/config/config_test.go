package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOptionsTypedGetters(t *testing.T) {
	var o Options
	if err := json.Unmarshal([]byte(`{
		"s": "hello", "b": true, "i": 3, "f": 2.5,
		"ss": ["a","b"], "fs": [1, 2.5, 10]
	}`), &o); err != nil {
		t.Fatal(err)
	}

	if got := o.String("s", "x"); got != "hello" {
		t.Fatalf("String: got %q", got)
	}
	if got := o.String("missing", "x"); got != "x" {
		t.Fatalf("String default: got %q", got)
	}
	if !o.Bool("b", false) {
		t.Fatal("Bool: got false")
	}
	if got := o.Int("i", 0); got != 3 {
		t.Fatalf("Int: got %d", got)
	}
	if got := o.Float("f", 0); got != 2.5 {
		t.Fatalf("Float: got %v", got)
	}
	if got := o.StringSlice("ss"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("StringSlice: got %v", got)
	}
	if got := o.FloatSlice("fs"); !reflect.DeepEqual(got, []float64{1, 2.5, 10}) {
		t.Fatalf("FloatSlice: got %v", got)
	}
	// Mistyped values fall back to the default.
	if got := o.Int("s", 9); got != 9 {
		t.Fatalf("Int on string value: got %d", got)
	}
}

func TestOptionsNullDecodesNonNil(t *testing.T) {
	var d Derivation
	if err := json.Unmarshal([]byte(`{"kind":"bucket","target":"t","options":null}`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Options == nil {
		t.Fatal("null options must decode to a non-nil map")
	}
}

func TestCommaRuneDefaults(t *testing.T) {
	if got := (Loader{}).CommaRune(); got != ',' {
		t.Fatalf("Loader default comma: got %q", got)
	}
	if got := (Loader{Comma: ";"}).CommaRune(); got != ';' {
		t.Fatalf("Loader comma: got %q", got)
	}
	if got := (StorageCSV{Comma: "\t"}).CommaRune(); got != '\t' {
		t.Fatalf("StorageCSV comma: got %q", got)
	}
}

const minimalJSON = `{
  "job": "park_facilities",
  "source": { "kind": "file", "file": { "path": "in.csv" } },
  "contract": {
    "name": "park_facilities",
    "fields": [
      { "name": "park_id", "type": "int", "required": true },
      { "name": "facility_count", "type": "int", "default": 0 }
    ]
  },
  "clean": {
    "dedupe_key": ["park_id"],
    "fields": { "facility_count": { "fill_missing": 0 } }
  },
  "storage": { "kind": "csvfile", "csv": { "path": "out.csv" } }
}`

const minimalYAML = `
job: park_facilities
source:
  kind: file
  file:
    path: in.csv
contract:
  name: park_facilities
  fields:
    - name: park_id
      type: int
      required: true
    - name: facility_count
      type: int
      default: 0
clean:
  dedupe_key: [park_id]
  fields:
    facility_count:
      fill_missing: 0
storage:
  kind: csvfile
  csv:
    path: out.csv
`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	p, err := Load(writeTemp(t, "p.json", minimalJSON))
	if err != nil {
		t.Fatal(err)
	}
	if p.Job != "park_facilities" || p.Source.File.Path != "in.csv" {
		t.Fatalf("decoded pipeline wrong: %+v", p)
	}
	if len(p.Contract.Fields) != 2 || p.Contract.Fields[0].Name != "park_id" {
		t.Fatalf("contract wrong: %+v", p.Contract)
	}
}

// A YAML pipeline must decode to the same structure as its JSON equivalent.
func TestLoadYAMLMatchesJSON(t *testing.T) {
	fromJSON, err := Load(writeTemp(t, "p.json", minimalJSON))
	if err != nil {
		t.Fatal(err)
	}
	fromYAML, err := Load(writeTemp(t, "p.yaml", minimalYAML))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fromJSON, fromYAML) {
		t.Fatalf("YAML and JSON diverge:\njson: %+v\nyaml: %+v", fromJSON, fromYAML)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
