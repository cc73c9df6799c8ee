// Package datasource defines where raw extract bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens the raw bytes of one extract. The caller closes the reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in logs and run summaries.
	Name() string
}
