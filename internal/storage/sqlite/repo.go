// Package sqlite implements a SQLite-backed sink using database/sql. Rows
// are inserted inside a single transaction with a prepared statement; SQLite
// has no bulk-load primitive like Postgres COPY, but one transaction keeps
// performance acceptable for the table sizes this pipeline handles.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"parkfacts/internal/schema"
	"parkfacts/internal/storage"
	"parkfacts/pkg/records"
)

// Sink is a SQLite-backed implementation of storage.Sink.
type Sink struct {
	db    *sql.DB
	cfg   storage.Config
	table string
}

// Open connects to the SQLite database named by the DSN and fails fast on an
// invalid path via a bounded ping.
func Open(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Sink{db: db, cfg: cfg, table: cfg.Table}, nil
}

// Write inserts the table in one transaction, optionally creating the
// destination table from the contract first.
func (s *Sink) Write(ctx context.Context, columns []string, table []records.Record) (int64, error) {
	if s.cfg.AutoCreateTable {
		if err := s.ensureTable(ctx, columns); err != nil {
			return 0, err
		}
	}
	if len(table) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(columns, ", "), placeholders,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	args := make([]any, len(columns))
	for _, rec := range table {
		for i, c := range columns {
			args[i] = rec[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Close releases the database handle.
func (s *Sink) Close() error { return s.db.Close() }

// ensureTable creates the destination table from the contract when absent.
func (s *Sink) ensureTable(ctx context.Context, columns []string) error {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, c+" "+sqliteType(s.cfg.Contract, c))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

func sqliteType(contract schema.Contract, column string) string {
	f, ok := contract.Field(column)
	if !ok {
		return "TEXT" // derived columns default to text
	}
	switch f.Type {
	case "int":
		return "INTEGER"
	default:
		return "TEXT" // dates stored as ISO text
	}
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg)
	})
}
