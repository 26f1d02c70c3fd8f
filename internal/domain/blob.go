package domain

import (
	"context"
	"io"
)

// BlobWriter uploads token metadata and media to object storage and returns
// a publicly resolvable URI for the stored object.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) (uri string, err error)
}
