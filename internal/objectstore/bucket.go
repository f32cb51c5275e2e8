package objectstore

import "context"

// Bucket binds an ObjectStore to one bucket. It is the storage capability
// handed to the watermark store, writer and archiver.
type Bucket struct {
	store ObjectStore
	name  string
}

// NewBucket binds store to the named bucket.
func NewBucket(store ObjectStore, name string) *Bucket {
	return &Bucket{store: store, name: name}
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Ensure creates the bucket if it does not exist.
func (b *Bucket) Ensure(ctx context.Context) error {
	return b.store.EnsureBucket(ctx, b.name)
}

// List returns keys under prefix, sorted by name.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	return b.store.ListPrefix(ctx, b.name, prefix)
}

// Put writes data to key.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return b.store.PutObject(ctx, b.name, key, data, contentType)
}

// Get reads key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	return b.store.GetObject(ctx, b.name, key)
}

// Move copies src to dst and then deletes src. If the copy fails src is
// left untouched.
func (b *Bucket) Move(ctx context.Context, src, dst string) error {
	if err := b.store.CopyObject(ctx, b.name, src, dst); err != nil {
		return err
	}
	return b.store.DeleteObject(ctx, b.name, src)
}

// Ping checks that the underlying store is reachable.
func (b *Bucket) Ping(ctx context.Context) error {
	return b.store.Ping(ctx)
}
