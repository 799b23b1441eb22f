package storage

import (
	"context"
	"io"
)

// ObjectStorage is the object store surface used for submission source archives.
type ObjectStorage interface {
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error
	// GetObject opens a reader for an object. Caller must close it.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)
	// RemovePrefix deletes every object under prefix and returns how many were removed.
	RemovePrefix(ctx context.Context, bucket, prefix string) (int, error)
}
