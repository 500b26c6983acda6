package multipart

import (
	"errors"
	"testing"
)

func TestCreateAndCompleteOrdersParts(t *testing.T) {
	r := New(10)
	if err := r.Create("upload1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.PutPart("upload1", 2, []byte("world")); err != nil {
		t.Fatalf("PutPart: %v", err)
	}
	if err := r.PutPart("upload1", 1, []byte("hello")); err != nil {
		t.Fatalf("PutPart: %v", err)
	}

	data, err := r.Complete("upload1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if string(data) != "helloworld" {
		t.Fatalf("expected parts in ascending order, got %q", data)
	}

	if _, err := r.Complete("upload1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after completion, got %v", err)
	}
}

func TestPutPartOverwritesExisting(t *testing.T) {
	r := New(10)
	r.Create("u1")
	r.PutPart("u1", 1, []byte("first"))
	r.PutPart("u1", 1, []byte("second"))

	data, err := r.Complete("u1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected overwritten part, got %q", data)
	}
}

func TestCapacityExceeded(t *testing.T) {
	r := New(1)
	if err := r.Create("u1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create("u2"); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	r.Abort("u1")
	if err := r.Create("u2"); err != nil {
		t.Fatalf("expected Create to succeed after freeing a slot: %v", err)
	}
}

func TestAbortIsIdempotent(t *testing.T) {
	r := New(10)
	r.Abort("never-created") // must not panic

	r.Create("u1")
	r.Abort("u1")
	r.Abort("u1") // second abort is a no-op, not an error
	if r.Len() != 0 {
		t.Fatalf("expected registry empty after abort, got len %d", r.Len())
	}
}

func TestPutPartUnknownUpload(t *testing.T) {
	r := New(10)
	if err := r.PutPart("missing", 1, []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
