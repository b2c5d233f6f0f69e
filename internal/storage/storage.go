// Package storage holds the blob storage contract for uploaded file content
// and its S3-compatible implementation. The file store keeps metadata only;
// the bytes live behind this interface, keyed by an opaque storage key.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnavailable wraps backend I/O faults so callers can distinguish them
// from domain errors. The core never retries; retry policy belongs here.
var ErrUnavailable = errors.New("storage unavailable")

// PutOptions define optional parameters for uploading blobs. Size should be
// the exact byte count; ContentType and Metadata are optional.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the abstract blob store. Implementations must be safe for
// concurrent use and rely on streaming I/O only.
type Storage interface {
	// Put uploads a blob under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (BlobInfo, error)
	// Get retrieves a blob's content as a streaming reader with its info.
	Get(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error)
	// Delete removes a blob by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL for credential-less download.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
