// Package csv loads a delimited text file into an in-memory table of records
// keyed by canonical header names, checking the header against the declared
// schema contract before any row is read.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"parkfacts/internal/schema"
	"parkfacts/pkg/records"
)

// Options configures loader behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing ASCII spaces from each field value.
	TrimSpace bool
}

// Loader parses delimited input against a schema contract. It is safe to
// reuse across inputs; Loader itself is not concurrency-safe.
type Loader struct {
	contract schema.Contract
	opt      Options
}

// NewLoader constructs a Loader bound to the given contract.
func NewLoader(contract schema.Contract, opt Options) *Loader {
	return &Loader{contract: contract, opt: opt}
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\ufeff"

// skipLogLimit caps per-row skip log lines so a pathological file can't
// flood the output.
const skipLogLimit = 400

// Load consumes delimited records from r and returns the parsed rows along
// with the number of rows skipped due to parse errors or field-count
// mismatches.
//
// The header row is mandatory. Header names are canonicalized (BOM strip,
// HeaderMap, lowercase, spaces to underscores) and then checked against the
// contract: a missing required column is a fatal *schema.SchemaMismatch.
// Body rows are soft-failed: malformed or misaligned rows are skipped and
// counted, empty cells become nil. All values are raw strings; type coercion
// happens in the cleaner.
func (l *Loader) Load(r io.Reader) ([]records.Record, int, error) {
	cr := csv.NewReader(r)
	if l.opt.Comma != 0 {
		cr.Comma = l.opt.Comma
	}
	cr.LazyQuotes = true

	h, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	headers := l.normalizeHeaders(h)

	if err := l.contract.CheckHeader(headers); err != nil {
		return nil, 0, err
	}

	var out []records.Record
	var skipped int

	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				logrus.WithFields(logrus.Fields{"line": line, "err": err}).Warn("skipping row")
			}
			skipped++
			continue
		}
		if len(row) != len(headers) {
			if skipped < skipLogLimit {
				logrus.WithFields(logrus.Fields{
					"line": line, "want": len(headers), "got": len(row),
				}).Warn("skipping row: field count mismatch")
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if l.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[headers[i]] = emptyToNil(val)
		}
		out = append(out, rec)
	}

	return out, skipped, nil
}

// emptyToNil converts an empty string to nil; other values pass through.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders produces canonical header keys using the contract's
// HeaderMap (when provided) and simple normalization (lowercase, spaces to
// underscores). It also strips a UTF-8 BOM from the first cell if present.
func (l *Loader) normalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if l.contract.HeaderMap != nil {
			if m, ok := l.contract.HeaderMap[c]; ok {
				res[i] = m
				continue
			}
		}
		res[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return res
}
