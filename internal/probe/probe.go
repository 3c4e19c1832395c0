// Package probe implements dataset sampling and schema inference, producing
// a starter pipeline config that can be refined by hand.
//
// The probe:
//   - Fetches a bounded sample of input bytes (file:// or http(s)://)
//   - Parses the sample as delimited text, best-effort
//   - Infers per-column types and category vocabularies
//   - Generates a config.Pipeline with sensible cleaning defaults
//
// Design constraints:
//   - Sampling is bounded in memory and time.
//   - Inference is best-effort and never fails the probe run; an
//     unclassifiable column falls back to "text".
package probe

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"parkfacts/internal/config"
	"parkfacts/internal/datasource/file"
	"parkfacts/internal/datasource/httpds"
	"parkfacts/internal/schema"
)

// Options controls sampling and generation.
type Options struct {
	// URL to sample: file://path, http://, or https://.
	URL string

	// MaxBytes to sample from the start of the input; 256 KiB when zero.
	MaxBytes int

	// Delimiter for the sample; ',' when zero.
	Delimiter rune

	// Name is used for the job and contract names; "dataset" when empty.
	Name string

	// EnumLimit is the largest distinct-value count a column may have and
	// still be classified "category"; 12 when zero.
	EnumLimit int
}

// Probe samples the input and returns a starter pipeline config.
func Probe(ctx context.Context, opt Options) (config.Pipeline, error) {
	var p config.Pipeline

	if opt.MaxBytes <= 0 {
		opt.MaxBytes = 256 << 10
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	if opt.Name == "" {
		opt.Name = "dataset"
	}
	if opt.EnumLimit <= 0 {
		opt.EnumLimit = 12
	}

	data, err := fetchSample(ctx, opt.URL, opt.MaxBytes)
	if err != nil {
		return p, err
	}
	// Cut to the last newline so a truncated trailing row can't skew
	// inference.
	if i := bytes.LastIndexByte(data, '\n'); i > 0 {
		data = data[:i+1]
	}

	headers, rows, err := readSample(data, opt.Delimiter)
	if err != nil {
		return p, err
	}
	if len(headers) == 0 {
		return p, fmt.Errorf("probe: no usable header row in sample")
	}

	return buildPipeline(opt, headers, rows), nil
}

// MarshalConfig renders a generated pipeline as indented JSON.
func MarshalConfig(p config.Pipeline) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// fetchSample reads up to n bytes from a file:// or http(s):// URL.
func fetchSample(ctx context.Context, url string, n int) ([]byte, error) {
	if strings.HasPrefix(url, "file://") {
		src := file.NewLocal(strings.TrimPrefix(url, "file://"))
		rc, err := src.Open(ctx)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		lr := &io.LimitedReader{R: rc, N: int64(n)}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(lr); err != nil && err != io.EOF {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	client := httpds.NewClient(httpds.Config{})
	return client.FetchFirstBytes(ctx, url, n)
}

// readSample parses the sample best-effort: malformed lines are skipped, and
// rows whose field count differs from the header are dropped so inference
// stays aligned.
func readSample(data []byte, delim rune) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var headers []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil, nil, nil
		}
		if err != nil || len(rec) == 0 {
			continue
		}
		headers = normalizeHeaders(rec)
		break
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) != len(headers) {
			continue
		}
		rows = append(rows, rec)
	}
	return headers, rows, nil
}

const utf8BOM = "\ufeff"

func normalizeHeaders(h []string) []string {
	out := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		out[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return out
}

// buildPipeline assembles the starter config: inferred contract, trim-all
// cleaning with zero-fill for ints, and a csvfile sink.
func buildPipeline(opt Options, headers []string, rows [][]string) config.Pipeline {
	fields := make([]schema.Field, len(headers))
	cleanFields := map[string]config.FieldRule{}

	for i, h := range headers {
		col := column(rows, i)
		typ, enum := inferType(col, opt.EnumLimit)
		fields[i] = schema.Field{
			Name:     h,
			Type:     typ,
			Required: nonEmptyRatio(col) > 0.99,
			Enum:     enum,
		}
		rule := config.FieldRule{Normalize: []string{"trim"}}
		if typ == "int" {
			rule.FillMissing = 0
		}
		if typ == "date" {
			rule.Normalize = append(rule.Normalize, "iso_date")
		}
		cleanFields[h] = rule
	}

	loader := config.Loader{TrimSpace: true}
	if opt.Delimiter != ',' {
		loader.Comma = string(opt.Delimiter)
	}

	return config.Pipeline{
		Job:    opt.Name,
		Source: sourceFor(opt.URL),
		Loader: loader,
		Contract: schema.Contract{
			Name:   opt.Name,
			Fields: fields,
		},
		Clean: config.CleanRules{Fields: cleanFields},
		Storage: config.Storage{
			Kind: "csvfile",
			CSV:  config.StorageCSV{Path: opt.Name + "_cleaned.csv"},
		},
	}
}

func sourceFor(url string) config.Source {
	if strings.HasPrefix(url, "file://") {
		return config.Source{
			Kind: "file",
			File: config.SourceFile{Path: strings.TrimPrefix(url, "file://")},
		}
	}
	return config.Source{
		Kind: "http",
		HTTP: config.SourceHTTP{URL: url},
	}
}

func column(rows [][]string, i int) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, strings.TrimSpace(r[i]))
	}
	return out
}

func nonEmptyRatio(col []string) float64 {
	if len(col) == 0 {
		return 0
	}
	n := 0
	for _, v := range col {
		if v != "" {
			n++
		}
	}
	return float64(n) / float64(len(col))
}

// inferType classifies a sampled column. Order matters: int and date are
// checked on all non-empty values; a low-cardinality text column becomes a
// category with its observed vocabulary; URLs are recognized by prefix.
func inferType(col []string, enumLimit int) (string, []string) {
	nonEmpty := 0
	ints, dates, urls := 0, 0, 0
	distinct := map[string]struct{}{}
	var order []string

	for _, v := range col {
		if v == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			ints++
		}
		if isDate(v) {
			dates++
		}
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			urls++
		}
		if _, seen := distinct[v]; !seen {
			distinct[v] = struct{}{}
			order = append(order, v)
		}
	}
	if nonEmpty == 0 {
		return "text", nil
	}
	switch {
	case ints == nonEmpty:
		return "int", nil
	case dates == nonEmpty:
		return "date", nil
	case urls == nonEmpty:
		return "url", nil
	case len(distinct) <= enumLimit && nonEmpty >= len(distinct)*2:
		return "category", order
	default:
		return "text", nil
	}
}

func isDate(s string) bool {
	for _, layout := range []string{schema.ISODate, "01/02/2006", "2006/01/02", "02.01.2006"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
