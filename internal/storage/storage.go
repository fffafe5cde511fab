// Package storage contains blob storage abstractions for asset payloads.
// Backends generate the stored name themselves so concurrent uploads never collide.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Get when no blob is stored under the key.
var ErrNotExist = errors.New("blob does not exist")

// PutObjectOptions define optional parameters for storing blobs.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// Ext is appended to the generated name and should include the leading dot.
type PutObjectOptions struct {
	Ext         string
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored blob.
type ObjectInfo struct {
	// Name is the generated stored name.
	Name string
	// Key addresses the blob within the backend; it is what records keep as storage path.
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the blob store adapter used by the asset service.
type Storage interface {
	// Put writes r under a freshly generated name. The blob is durable once Put returns.
	Put(ctx context.Context, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get streams a blob. It returns an error wrapping ErrNotExist when the blob is missing.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Exists reports whether a blob is stored under key. Probe failures read as absent.
	Exists(ctx context.Context, key string) bool
	// Delete removes a blob. Deleting a missing blob succeeds.
	Delete(ctx context.Context, key string) error
}
