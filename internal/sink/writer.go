// Package sink commits a window's payload to object storage.
package sink

import (
	"context"

	"github.com/nucleus/di-collector/internal/objectstore"
	"github.com/nucleus/di-collector/internal/watermark"
	"github.com/nucleus/di-collector/internal/window"
)

// WriteResult reports what Write did.
type WriteResult struct {
	Name    string
	Bytes   int
	Skipped bool
}

// Writer writes one object per non-empty window. Names are unique per
// window, so rewriting a window with the same payload is idempotent.
type Writer struct {
	bucket *objectstore.Bucket
	naming watermark.Naming
}

// NewWriter creates a writer into bucket using naming.
func NewWriter(bucket *objectstore.Bucket, naming watermark.Naming) *Writer {
	return &Writer{bucket: bucket, naming: naming}
}

// Write stores payload as <prefix>_<start>_<end>.json with content type
// application/json. An empty payload writes nothing.
func (w *Writer) Write(ctx context.Context, win window.Window, payload []byte) (WriteResult, error) {
	name := w.naming.Name(win)
	if len(payload) == 0 {
		return WriteResult{Name: name, Skipped: true}, nil
	}
	if err := w.bucket.Put(ctx, name, payload, objectstore.ContentTypeJSON); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Name: name, Bytes: len(payload)}, nil
}
