// Package postgres implements a Postgres-backed sink using pgx v5. The
// cleaned table is bulk-loaded with COPY, the fastest path for batch
// inserts.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parkfacts/internal/schema"
	"parkfacts/internal/storage"
	"parkfacts/pkg/records"
)

// Sink is a Postgres-backed implementation of storage.Sink.
type Sink struct {
	pool *pgxpool.Pool
	cfg  storage.Config
}

// Open connects a pgx pool to the configured DSN.
func Open(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Sink{pool: pool, cfg: cfg}, nil
}

// Write COPYs the table into the destination, optionally creating it from
// the contract first.
func (s *Sink) Write(ctx context.Context, columns []string, table []records.Record) (int64, error) {
	if s.cfg.AutoCreateTable {
		if err := s.ensureTable(ctx, columns); err != nil {
			return 0, err
		}
	}
	if len(table) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(table))
	for i, rec := range table {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}

	ident := pgx.Identifier(strings.Split(s.cfg.Table, "."))
	n, err := s.pool.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy: %w", err)
	}
	return n, nil
}

// Close releases the pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func (s *Sink) ensureTable(ctx context.Context, columns []string) error {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, pgx.Identifier{c}.Sanitize()+" "+pgType(s.cfg.Contract, c))
	}
	ident := pgx.Identifier(strings.Split(s.cfg.Table, ".")).Sanitize()
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident, strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}
	return nil
}

func pgType(contract schema.Contract, column string) string {
	f, ok := contract.Field(column)
	if !ok {
		return "text"
	}
	switch f.Type {
	case "int":
		return "bigint"
	case "date":
		return "date"
	default:
		return "text"
	}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg)
	})
}
