/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestPreviewCacheRoundTrip(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	got, err := GetPreview(ctx, root, "p1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected a miss on an empty cache")
	}

	in := CachedPreview{PageID: "p1", Variant: 0, URL: "/previews/p1-v0.png", Blob: []byte{1, 2, 3}}
	if err := PutPreview(ctx, root, in); err != nil {
		t.Fatal(err)
	}
	got, err = GetPreview(ctx, root, "p1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.URL != in.URL || !bytes.Equal(got.Blob, in.Blob) {
		t.Fatalf("round trip: %+v", got)
	}
	// Another variant of the same page is a distinct entry.
	if got, _ := GetPreview(ctx, root, "p1", 1); got != nil {
		t.Fatal("variant 1 should miss")
	}
}

func TestPreviewUpsertReplaces(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := PutPreview(ctx, root, CachedPreview{PageID: "p1", Variant: 0, URL: "/a"}); err != nil {
		t.Fatal(err)
	}
	if err := PutPreview(ctx, root, CachedPreview{PageID: "p1", Variant: 0, URL: "/b"}); err != nil {
		t.Fatal(err)
	}
	got, err := GetPreview(ctx, root, "p1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != "/b" {
		t.Fatalf("upsert did not replace: %q", got.URL)
	}
}

func TestPreviewLRUEviction(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	t.Setenv("IVS_PREVIEWS_MAX_BYTES", "10")

	big := make([]byte, 6)
	if err := PutPreview(ctx, root, CachedPreview{PageID: "p1", Variant: 0, Blob: big}); err != nil {
		t.Fatal(err)
	}
	// Touch p1 so it is the most recently used.
	if _, err := GetPreview(ctx, root, "p1", 0); err != nil {
		t.Fatal(err)
	}
	if err := PutPreview(ctx, root, CachedPreview{PageID: "p2", Variant: 0, Blob: big}); err != nil {
		t.Fatal(err)
	}
	total, err := TotalPreviewBytes(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if total > 10 {
		t.Fatalf("cache exceeds cap: %d bytes", total)
	}
}

func TestGetOrCreatePreview(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	gens := 0
	gen := func(context.Context) (CachedPreview, error) {
		gens++
		return CachedPreview{URL: "/gen"}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := GetOrCreatePreview(ctx, root, "p1", 0, gen)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.URL != "/gen" {
			t.Fatalf("pass %d: %+v", i, got)
		}
	}
	if gens != 1 {
		t.Fatalf("generator ran %d times, want once", gens)
	}
}
