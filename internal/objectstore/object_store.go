// Package objectstore abstracts the object storage the collector writes
// window objects to and reads its watermark from.
package objectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ContentTypeJSON is the content type of every window object.
const ContentTypeJSON = "application/json"

// ObjectStore abstracts the minimal S3-style operations the collector needs.
// ListPrefix returns keys sorted by name. There is no rename primitive;
// moves are a copy followed by a delete.
type ObjectStore interface {
	Ping(ctx context.Context) error
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error
	DeleteObject(ctx context.Context, bucket, key string) error
}

// LocalStore persists objects on disk to mimic S3 behaviour for development
// and tests. Content types are not persisted.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new local object store rooted at dir.
func NewLocalStore(root string) *LocalStore {
	_ = os.MkdirAll(root, 0o755)
	return &LocalStore{root: root}
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(s.root, 0o755)
}

func (s *LocalStore) EnsureBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	return os.MkdirAll(s.bucketPath(bucket), 0o755)
}

func (s *LocalStore) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	if key == "" {
		return wrapError(CodeWriteFailed, false, errors.New("object key is required"))
	}
	if err := s.EnsureBucket(ctx, bucket); err != nil {
		return err
	}

	fullPath := s.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return wrapError(CodePermissionDenied, false, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return wrapError(CodeWriteFailed, true, err)
	}
	return nil
}

func (s *LocalStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	data, err := os.ReadFile(s.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapError(CodeObjectNotFound, false, err)
		}
		return nil, wrapError(CodeWriteFailed, true, err)
	}
	return data, nil
}

// ListPrefix walks the whole bucket and keeps keys starting with prefix, so
// prefix may end mid-name like an S3 prefix.
func (s *LocalStore) ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	root := s.bucketPath(bucket)

	var keys []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, wrapError(CodeListFailed, true, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *LocalStore) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	data, err := s.GetObject(ctx, bucket, srcKey)
	if err != nil {
		return err
	}
	if err := s.PutObject(ctx, bucket, dstKey, data, ""); err != nil {
		return wrapError(CodeCopyFailed, true, err)
	}
	return nil
}

func (s *LocalStore) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" || key == "" {
		return wrapError(CodeBucketNotFound, false, errors.New("bucket/key is required"))
	}
	if err := os.Remove(s.objectPath(bucket, key)); err != nil {
		if os.IsNotExist(err) {
			return wrapError(CodeObjectNotFound, false, err)
		}
		return wrapError(CodeDeleteFailed, true, err)
	}
	return nil
}

func (s *LocalStore) bucketPath(bucket string) string {
	return filepath.Join(s.root, sanitizePath(bucket))
}

func (s *LocalStore) objectPath(bucket, key string) string {
	return filepath.Join(s.bucketPath(bucket), filepath.FromSlash(key))
}

func sanitizePath(raw string) string {
	replacer := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return replacer.Replace(raw)
}
