package objectstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// Object is a stored payload with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore is an in-process ObjectStore. It records every call so tests
// can assert on storage traffic.
type MemoryStore struct {
	mu       sync.Mutex
	buckets  map[string]map[string]Object
	calls    []string
	failures map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]Object), failures: make(map[string]error)}
}

// FailOn makes every later op ("put", "copy", "delete",
// "list") on key return err. For "list" key is the prefix.
func (s *MemoryStore) FailOn(op, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+" "+key] = err
}

func (s *MemoryStore) failureLocked(op, key string) error {
	if err, ok := s.failures[op+" "+key]; ok {
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) EnsureBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, errors.New("bucket name is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucketLocked(bucket)
	return nil
}

func (s *MemoryStore) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" || key == "" {
		return wrapError(CodeWriteFailed, false, errors.New("bucket/key is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failureLocked("put", key); err != nil {
		return wrapError(CodeWriteFailed, true, err)
	}
	s.calls = append(s.calls, "put "+key)
	s.bucketLocked(bucket)[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (s *MemoryStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.Stat(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return obj.Data, nil
}

// Stat returns the object with its content type.
func (s *MemoryStore) Stat(ctx context.Context, bucket, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return Object{}, wrapError(CodeBucketNotFound, false, errors.New(bucket))
	}
	obj, ok := objects[key]
	if !ok {
		return Object{}, wrapError(CodeObjectNotFound, false, errors.New(key))
	}
	return Object{Data: append([]byte(nil), obj.Data...), ContentType: obj.ContentType}, nil
}

func (s *MemoryStore) ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failureLocked("list", prefix); err != nil {
		return nil, wrapError(CodeListFailed, true, err)
	}
	var keys []string
	for key := range s.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	objects := s.buckets[bucket]
	obj, ok := objects[srcKey]
	if !ok {
		return wrapError(CodeObjectNotFound, false, errors.New(srcKey))
	}
	if err := s.failureLocked("copy", srcKey); err != nil {
		return wrapError(CodeCopyFailed, true, err)
	}
	s.calls = append(s.calls, "copy "+srcKey+" -> "+dstKey)
	objects[dstKey] = obj
	return nil
}

func (s *MemoryStore) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	objects := s.buckets[bucket]
	if _, ok := objects[key]; !ok {
		return wrapError(CodeObjectNotFound, false, errors.New(key))
	}
	if err := s.failureLocked("delete", key); err != nil {
		return wrapError(CodeDeleteFailed, true, err)
	}
	s.calls = append(s.calls, "delete "+key)
	delete(objects, key)
	return nil
}

// Calls returns the mutating operations performed so far, in order.
func (s *MemoryStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *MemoryStore) bucketLocked(bucket string) map[string]Object {
	objects, ok := s.buckets[bucket]
	if !ok {
		objects = make(map[string]Object)
		s.buckets[bucket] = objects
	}
	return objects
}
