// Package blob stores artifact payloads. Keys are slash-separated paths
// inside a single bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store abstracts the object operations the artifact registry needs.
type Store interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// LocalStore persists objects on disk under root/bucket.
type LocalStore struct {
	root   string
	bucket string
}

// NewLocalStore creates a local object store rooted at dir.
func NewLocalStore(root, bucket string) *LocalStore {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &LocalStore{root: root, bucket: bucket}
}

// DefaultBucket is used when no bucket is configured.
const DefaultBucket = "artifacts"

func (s *LocalStore) EnsureBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.bucketPath(), 0o755); err != nil {
		return wrapError(CodePermissionDenied, "", err)
	}
	return nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return wrapError(CodePermissionDenied, key, err)
	}

	// Write to a sibling temp file and rename so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return wrapError(CodeWriteFailed, key, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return wrapError(CodeWriteFailed, key, err)
	}
	if size >= 0 && n != size {
		tmp.Close()
		return wrapError(CodeWriteFailed, key, fmt.Errorf("short write: %d of %d bytes", n, size))
	}
	if err := tmp.Close(); err != nil {
		return wrapError(CodeWriteFailed, key, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return wrapError(CodeWriteFailed, key, err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapError(CodeObjectNotFound, key, err)
		}
		return nil, wrapError(CodeReadFailed, key, err)
	}
	return f, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fullPath, err := s.objectPath(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapError(CodeReadFailed, key, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalStore) bucketPath() string {
	return filepath.Join(s.root, sanitizeSegment(s.bucket))
}

// objectPath maps key onto the bucket directory, refusing keys that would
// escape it.
func (s *LocalStore) objectPath(key string) (string, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+key)), "/")
	if clean == "" || clean == "." {
		return "", wrapError(CodeWriteFailed, key, fmt.Errorf("object key is required"))
	}
	return filepath.Join(s.bucketPath(), filepath.FromSlash(clean)), nil
}

func sanitizeSegment(s string) string {
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.ReplaceAll(s, "\\", "_")
}

// JoinKey joins key segments with "/" and drops empty ones.
func JoinKey(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
