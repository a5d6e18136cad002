package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using local disk.
// Plain paths resolve in place; s3:// URIs fail with ErrS3NotConfigured
// unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies where fetched files are placed.
// If tempDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "avprep")
	}
	tempDir = filepath.Clean(tempDir)

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// Fetch resolves a plain path by checking it exists and returning it
// unchanged. No copy is made, so Cleanup will never touch it.
func (s *LocalStorage) Fetch(ctx context.Context, uri string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if IsS3URI(uri) {
		return "", ErrS3NotConfigured
	}

	if _, err := os.Stat(uri); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return "", fmt.Errorf("stat %s: %w", uri, err)
	}

	return uri, nil
}

// Store copies the local file at path to the destination path named by uri,
// creating parent directories as needed.
func (s *LocalStorage) Store(ctx context.Context, path, uri string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if IsS3URI(uri) {
		return "", ErrS3NotConfigured
	}

	if err := os.MkdirAll(filepath.Dir(uri), 0750); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	src, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(uri) // #nosec G304 - uri is provided by trusted caller
	if err != nil {
		return "", fmt.Errorf("create destination file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(uri)
		return "", fmt.Errorf("copy to destination: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(uri)
		return "", fmt.Errorf("close destination file: %w", err)
	}

	return uri, nil
}

// Cleanup removes the specified temporary files. It continues cleanup even
// if some files fail to delete, returning the first error encountered.
// Paths outside the temp directory are skipped, never deleted.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if !s.inTempDir(p) {
			continue
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// inTempDir reports whether p lies inside the storage temp directory.
func (s *LocalStorage) inTempDir(p string) bool {
	return strings.HasPrefix(filepath.Clean(p), s.tempDir+string(os.PathSeparator))
}

// tempFile creates an empty file in the temp directory whose name starts
// with the given hint.
func (s *LocalStorage) tempFile(hint string) (*os.File, error) {
	f, err := os.CreateTemp(s.tempDir, hint+"_*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return f, nil
}
