package sink

import (
	"bytes"
	"context"
	"testing"

	"github.com/nucleus/di-collector/internal/objectstore"
	"github.com/nucleus/di-collector/internal/watermark"
	"github.com/nucleus/di-collector/internal/window"
)

func testWindow(t *testing.T) window.Window {
	t.Helper()
	start, err := window.Parse("2023-09-10T15:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	end, _ := window.Parse("2023-09-10T15:15:00Z")
	return window.Window{Start: start, End: end}
}

func TestWriter_WritesNamedJSONObject(t *testing.T) {
	ctx := context.Background()
	mem := objectstore.NewMemoryStore()
	w := NewWriter(objectstore.NewBucket(mem, "events"), watermark.NewNaming(watermark.DefaultPrefix))

	payload := []byte("[{\"a\":1}]\n[{\"b\":2}]")
	res, err := w.Write(ctx, testWindow(t), payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	const want = "jc_directoryinsights_2023-09-10T15:00:00Z_2023-09-10T15:15:00Z.json"
	if res.Name != want || res.Skipped || res.Bytes != len(payload) {
		t.Errorf("result = %+v", res)
	}
	obj, err := mem.Stat(ctx, "events", want)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !bytes.Equal(obj.Data, payload) || obj.ContentType != "application/json" {
		t.Errorf("object = %q (%s)", obj.Data, obj.ContentType)
	}
}

func TestWriter_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := objectstore.NewMemoryStore()
	w := NewWriter(objectstore.NewBucket(mem, "events"), watermark.NewNaming(""))
	payload := []byte(`[{"a":1}]`)

	first, err := w.Write(ctx, testWindow(t), payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	before, _ := mem.Stat(ctx, "events", first.Name)
	second, err := w.Write(ctx, testWindow(t), payload)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	after, _ := mem.Stat(ctx, "events", second.Name)

	if first.Name != second.Name || !bytes.Equal(before.Data, after.Data) {
		t.Errorf("rewrite changed object: %q -> %q", before.Data, after.Data)
	}
	keys, _ := mem.ListPrefix(ctx, "events", "")
	if len(keys) != 1 {
		t.Errorf("objects = %v, want exactly one", keys)
	}
}

func TestWriter_EmptyPayloadWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem := objectstore.NewMemoryStore()
	w := NewWriter(objectstore.NewBucket(mem, "events"), watermark.NewNaming(""))

	res, err := w.Write(ctx, testWindow(t), nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !res.Skipped {
		t.Error("expected skipped")
	}
	if calls := mem.Calls(); len(calls) != 0 {
		t.Errorf("storage calls = %v, want none", calls)
	}
}
