// Package storage provides the object store gateway backing product
// images. The S3 implementation works against AWS S3 and MinIO-style
// path-addressed endpoints; an in-memory implementation backs tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrObjectNotFound is returned by GetFile when the key has no object.
var ErrObjectNotFound = errors.New("object not found")

// Error wraps an object store backend failure with the operation and key
// it occurred on.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ObjectStorage is the gateway to the object store holding uploaded
// binaries. FileURL is a pure derivation and performs no network call.
type ObjectStorage interface {
	// UploadFile stores data under a generated key and returns it.
	UploadFile(ctx context.Context, data []byte, contentType, originalName, folder string) (string, error)
	// DeleteFile removes the object under key. Deleting a missing key is
	// not an error on S3-compatible backends.
	DeleteFile(ctx context.Context, key string) error
	// GetFile reads the whole object into memory.
	GetFile(ctx context.Context, key string) ([]byte, error)
	// ListFiles returns the keys under folder. Exposed so an out-of-band
	// orphan reconciliation sweep can be built against the store.
	ListFiles(ctx context.Context, folder string) ([]string, error)
	// FileURL derives the public URL for key.
	FileURL(key string) string
}

// objectKey builds the storage key for an upload: a millisecond timestamp
// prefix keeps concurrent uploads of the same filename from colliding and
// orders objects chronologically within a folder.
func objectKey(folder, originalName string, now time.Time) string {
	if folder == "" {
		return fmt.Sprintf("%d-%s", now.UnixMilli(), originalName)
	}
	return fmt.Sprintf("%s/%d-%s", folder, now.UnixMilli(), originalName)
}
