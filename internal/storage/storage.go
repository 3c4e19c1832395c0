// Package storage contains the storage-agnostic sink contract and the
// factory that concrete backends register themselves with. The cleaned table
// is written through a Sink exactly once at the end of a run; backends exist
// for delimited files, SQLite, and Postgres.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"parkfacts/internal/schema"
	"parkfacts/pkg/records"
)

// Sink persists a cleaned table. Write receives the output columns in order
// and the full table; implementations decide how to map values to their
// medium. Close releases any held resources.
type Sink interface {
	Write(ctx context.Context, columns []string, table []records.Record) (int64, error)
	Close() error
}

// Config is the backend-agnostic sink configuration assembled from the
// pipeline's storage section.
type Config struct {
	// Kind selects the registered backend.
	Kind string

	// Path and Comma configure the "csvfile" backend.
	Path  string
	Comma rune

	// DSN and Table configure the database backends.
	DSN   string
	Table string

	// AutoCreateTable makes database backends create the destination table
	// from the contract before writing.
	AutoCreateTable bool

	// Contract carries the schema for column types during table creation.
	Contract schema.Contract
}

// FactoryFn constructs a Sink from a Config.
type FactoryFn func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]FactoryFn{}
)

// Register installs a backend factory under the given kind. Re-registering a
// kind overrides the previous factory (useful for tests).
func Register(kind string, fn FactoryFn) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// New constructs a Sink for cfg.Kind. Unknown kinds list the registered ones
// in the error so a typo in a pipeline file is easy to spot.
func New(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %v)", cfg.Kind, registered())
	}
	return fn(ctx, cfg)
}

func registered() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
