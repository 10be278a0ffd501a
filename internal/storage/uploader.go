package storage

import (
	"context"
	"io"
)

// Uploader stores a binary blob and returns a durable, publicly fetchable
// URL. Implementations own the blob after a successful call; callers keep
// only the URL.
type Uploader interface {
	Upload(ctx context.Context, reader io.Reader, size int64, suggestedName, contentType string) (string, error)
}
