// Package watermark derives the next run's start boundary from the window
// objects already committed to storage. The object names are the
// checkpoint; there is no separate state record.
package watermark

import (
	"context"
	"sort"

	"github.com/nucleus/di-collector/internal/objectstore"
)

// Store exposes the committed window names. The listing-backed
// implementation can be replaced by a key-value record without touching the
// orchestrator.
type Store interface {
	// Names returns committed top-level window names sorted by name.
	Names(ctx context.Context) ([]string, error)
	// Latest returns the chronologically last committed name.
	Latest(ctx context.Context) (string, bool, error)
}

// ListingStore implements Store by listing the bucket by prefix. It relies
// on strongly consistent listing.
type ListingStore struct {
	bucket *objectstore.Bucket
	naming Naming
}

// NewListingStore creates a listing-backed watermark store.
func NewListingStore(bucket *objectstore.Bucket, naming Naming) *ListingStore {
	return &ListingStore{bucket: bucket, naming: naming}
}

// Names lists the bucket by prefix and keeps top-level names only.
func (s *ListingStore) Names(ctx context.Context) ([]string, error) {
	keys, err := s.bucket.List(ctx, s.naming.Prefix())
	if err != nil {
		return nil, err
	}
	names := keys[:0]
	for _, k := range keys {
		if s.naming.IsTopLevel(k) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the last name in sorted order.
func (s *ListingStore) Latest(ctx context.Context) (string, bool, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return "", false, err
	}
	if len(names) == 0 {
		return "", false, nil
	}
	return names[len(names)-1], true, nil
}
