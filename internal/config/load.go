package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and decodes a pipeline file. JSON is the native format; files
// ending in .yaml/.yml are accepted too and converted through an
// intermediate generic document so both formats decode into the same structs
// (and the same json tags).
func Load(path string) (Pipeline, error) {
	var p Pipeline

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return p, fmt.Errorf("decode yaml config %s: %w", path, err)
		}
		raw, err = json.Marshal(normalizeYAML(doc))
		if err != nil {
			return p, fmt.Errorf("convert yaml config %s: %w", path, err)
		}
	}

	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

// normalizeYAML rewrites yaml.v3's map[string]any/[]any document so that
// nested map keys are always strings, as encoding/json requires.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeYAML(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = normalizeYAML(vv)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	default:
		return v
	}
}
