// Package storage defines the FileStore interface for reading and writing
// files. It abstracts the underlying storage backend so that callers can
// swap between local disk and S3-compatible object stores without
// changing application code.
//
// The ge2e tool writes one embedding file per utterance through a
// FileStore rooted at the output location, and reads them back for
// similarity and search.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing.
	// If the file already exists it is replaced when the writer is closed.
	// Parent directories are created automatically.
	// The caller must close the returned Writer to commit the data, or
	// abort it to discard them.
	Write(ctx context.Context, path string) (Writer, error)

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the sorted paths of all files under prefix.
	// An empty prefix lists the whole store.
	List(ctx context.Context, prefix string) ([]string, error)

	// URI returns a human-readable location of the store root.
	URI() string
}

// Writer is a pending file returned by [FileStore.Write]. Close commits
// the written bytes; Abort discards them and leaves any existing file
// untouched. Only the first of Close and Abort has an effect.
type Writer interface {
	io.WriteCloser
	Abort() error
}

// S3Scheme is the URI scheme selecting an [S3Store] in [Open].
const S3Scheme = "s3://"

// Open returns the FileStore for location: "s3://bucket/prefix" opens
// an [S3Store] with the default AWS credential chain, anything else is a
// local directory.
func Open(ctx context.Context, location string) (FileStore, error) {
	if !strings.HasPrefix(location, S3Scheme) {
		return NewLocal(location)
	}
	bucket, prefix, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// ParseS3URI splits "s3://bucket/some/prefix" into bucket and prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("storage: %q is not an s3 uri", uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("storage: %q has no bucket", uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}
