package core

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Bucket      string
	Size        int64
	ContentType string
}

// ObjectStore is any S3-compatible blob store.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ErrObjectNotFound is returned by ObjectStore implementations for missing keys.
var ErrObjectNotFound = NotFound("object not found")
