// Package store resolves sample URIs to local files and persists outputs.
// It defines the Storage interface (port) and implementations for local
// disk and S3, so the pipeline can read and write s3:// URIs and plain
// paths through the same contract.
package store

import (
	"context"
	"errors"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrS3NotConfigured is returned when an s3:// URI is used
	// without S3 configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrNotFound is returned when the referenced object or file does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidS3URI is returned for s3:// URIs missing a bucket or key.
	ErrInvalidS3URI = errors.New("invalid s3 URI")
)

// Storage resolves input URIs to local files and persists output files.
// A URI is either a plain filesystem path or an s3://bucket/key reference.
type Storage interface {
	// Fetch makes the object behind uri available as a local file and
	// returns its path. Plain paths are returned as-is; remote objects
	// are downloaded into the temp directory.
	Fetch(ctx context.Context, uri string) (path string, err error)

	// Store persists the local file at path to uri and returns the
	// final location (a path, or a public URL for S3).
	Store(ctx context.Context, path, uri string) (location string, err error)

	// Cleanup removes fetched temporary files. Paths outside the temp
	// directory are skipped so caller inputs are never deleted.
	Cleanup(ctx context.Context, paths []string) error

	// TempDir returns the directory fetched files are placed in.
	TempDir() string
}

// IsS3URI reports whether uri refers to an S3 object.
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// ParseS3URI splits an s3://bucket/key URI into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", ErrInvalidS3URI
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", ErrInvalidS3URI
	}
	return bucket, key, nil
}
