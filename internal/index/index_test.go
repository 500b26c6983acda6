package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func open(t *testing.T) *Index {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "metadata.db")
	idx, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestUpsertAndGet(t *testing.T) {
	idx := open(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "b1", "a/b/c.txt", "cid1", 42, "text/plain"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	m, err := idx.Get(ctx, "b1", "a/b/c.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.CID != "cid1" || m.Size != 42 || m.ContentType != "text/plain" {
		t.Fatalf("unexpected metadata: %+v", m)
	}

	// overwrite
	if err := idx.Upsert(ctx, "b1", "a/b/c.txt", "cid2", 7, "application/json"); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	m2, err := idx.Get(ctx, "b1", "a/b/c.txt")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if m2.CID != "cid2" || m2.Size != 7 {
		t.Fatalf("expected overwritten row, got %+v", m2)
	}
}

func TestGetNotFound(t *testing.T) {
	idx := open(t)
	_, err := idx.Get(context.Background(), "nope", "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	idx := open(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "b1", "k", "cid1", 1, "text/plain"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Delete(ctx, "b1", "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := idx.Get(ctx, "b1", "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// deleting an absent row is not an error
	if err := idx.Delete(ctx, "b1", "k"); err != nil {
		t.Fatalf("Delete absent row should not error: %v", err)
	}
}

func TestCIDRefCount(t *testing.T) {
	idx := open(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "b1", "k1", "shared", 1, "text/plain"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, "b1", "k2", "shared", 1, "text/plain"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := idx.CIDRefCount(ctx, "shared")
	if err != nil {
		t.Fatalf("CIDRefCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected ref count 2, got %d", n)
	}

	if err := idx.Delete(ctx, "b1", "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err = idx.CIDRefCount(ctx, "shared")
	if err != nil {
		t.Fatalf("CIDRefCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected ref count 1 after delete, got %d", n)
	}
}

func TestFindShallowestEmptyAncestor(t *testing.T) {
	idx := open(t)
	ctx := context.Background()

	// Only a/x/y/z.txt exists. Deleting it should trim "a" (the shallowest
	// ancestor with nothing left under it), not "a/x/y" (the deepest).
	if err := idx.Upsert(ctx, "b1", "a/x/y/z.txt", "cid1", 1, "text/plain"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Delete(ctx, "b1", "a/x/y/z.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	shallow, err := idx.FindShallowestEmptyAncestor(ctx, "b1", "a/x/y/z.txt")
	if err != nil {
		t.Fatalf("FindShallowestEmptyAncestor: %v", err)
	}
	if shallow != "a" {
		t.Fatalf("expected shallowest ancestor 'a', got %q", shallow)
	}
}

func TestFindShallowestEmptyAncestorWithSurvivingSibling(t *testing.T) {
	idx := open(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "b1", "a/x/y/z.txt", "cid1", 1, "text/plain"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, "b1", "a/x/other.txt", "cid2", 1, "text/plain"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Delete(ctx, "b1", "a/x/y/z.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// "a" and "a/x" still have a/x/other.txt under them; "a/x/y" is now
	// empty but is the deepest candidate, so it's the shallowest EMPTY one.
	shallow, err := idx.FindShallowestEmptyAncestor(ctx, "b1", "a/x/y/z.txt")
	if err != nil {
		t.Fatalf("FindShallowestEmptyAncestor: %v", err)
	}
	if shallow != "a/x/y" {
		t.Fatalf("expected 'a/x/y', got %q", shallow)
	}
}

func TestFindShallowestEmptyAncestorNoDirectory(t *testing.T) {
	idx := open(t)
	shallow, err := idx.FindShallowestEmptyAncestor(context.Background(), "b1", "toplevel.txt")
	if err != nil {
		t.Fatalf("FindShallowestEmptyAncestor: %v", err)
	}
	if shallow != "" {
		t.Fatalf("expected no ancestor for a top-level key, got %q", shallow)
	}
}

func TestPing(t *testing.T) {
	idx := open(t)
	if err := idx.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
