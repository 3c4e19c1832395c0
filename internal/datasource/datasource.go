// Package datasource defines the contract for places input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a stream of raw dataset bytes. Implementations exist for the
// local filesystem and HTTP(S) endpoints.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
