// Package csvfile implements the delimited-file sink: the cleaned table goes
// back out in the same format it came in, with the canonical column names as
// the header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"parkfacts/internal/storage"
	"parkfacts/pkg/records"
)

// Sink writes the cleaned table to a single delimited file.
type Sink struct {
	path  string
	comma rune
}

// New returns a Sink writing to path with the given delimiter (',' if zero).
func New(path string, comma rune) *Sink {
	if comma == 0 {
		comma = ','
	}
	return &Sink{path: path, comma: comma}
}

// Write creates (or truncates) the output file and writes a header row
// followed by every record, with nil values as empty cells.
func (s *Sink) Write(ctx context.Context, columns []string, table []records.Record) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	f, err := os.Create(s.path)
	if err != nil {
		return 0, fmt.Errorf("csvfile: create %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = s.comma

	if err := w.Write(columns); err != nil {
		return 0, fmt.Errorf("csvfile: write header: %w", err)
	}

	row := make([]string, len(columns))
	var written int64
	for _, rec := range table {
		for i, c := range columns {
			row[i] = records.String(rec[c])
		}
		if err := w.Write(row); err != nil {
			return written, fmt.Errorf("csvfile: write row: %w", err)
		}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("csvfile: flush: %w", err)
	}
	return written, nil
}

// Close is a no-op; the file handle only lives inside Write.
func (s *Sink) Close() error { return nil }

func init() {
	storage.Register("csvfile", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		if cfg.Path == "" {
			return nil, fmt.Errorf("csvfile: path must not be empty")
		}
		return New(cfg.Path, cfg.Comma), nil
	})
}
