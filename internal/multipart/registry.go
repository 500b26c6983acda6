// Package multipart is the bounded in-memory registry of in-flight
// multipart uploads (C5): upload_id -> part_number -> bytes, capped at a
// configured number of concurrent uploads.
//
// Grounded on the prototype's LimitedSlotsMap (limited_slots.rs): capacity
// refusal is an explicit, observable property of the registry itself
// (checked before insertion), not an incidental side effect of some map's
// resize policy.
package multipart

import (
	"errors"
	"sort"
	"sync"
)

// ErrCapacityExceeded is returned by Create when the registry already
// holds capacity uploads.
var ErrCapacityExceeded = errors.New("multipart: concurrent upload capacity exceeded")

// ErrNotFound is returned when an upload_id has no matching slot.
var ErrNotFound = errors.New("multipart: upload not found")

// upload is one in-flight multipart upload: the parts received so far.
// The bucket/key it completes into is supplied at completion time.
type upload struct {
	mu    sync.Mutex
	parts map[int8][]byte
}

// Registry is a capacity-bounded map of upload_id -> upload.
type Registry struct {
	capacity int

	mu      sync.Mutex
	uploads map[string]*upload
}

// New builds a Registry accepting at most capacity concurrent uploads.
func New(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		uploads:  make(map[string]*upload),
	}
}

// Create reserves a new, empty upload under uploadID. It fails with
// ErrCapacityExceeded if the registry is already at capacity: the check
// and the insertion happen under the same lock, so capacity is never
// transiently exceeded by a racing pair of Create calls.
func (r *Registry) Create(uploadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.uploads) >= r.capacity {
		return ErrCapacityExceeded
	}
	r.uploads[uploadID] = &upload{parts: make(map[int8][]byte)}
	return nil
}

// PutPart stores (or overwrites) a part's bytes under uploadID.
// partNumber is 1..127: the registry carries forward the data model's
// int8 part number rather than S3's wider 1..10000 range.
func (r *Registry) PutPart(uploadID string, partNumber int8, data []byte) error {
	u, err := r.lookup(uploadID)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.parts[partNumber] = data
	return nil
}

// Complete removes the upload and returns its parts concatenated in
// ascending part-number order.
func (r *Registry) Complete(uploadID string) ([]byte, error) {
	u, err := r.remove(uploadID)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	numbers := make([]int, 0, len(u.parts))
	for n := range u.parts {
		numbers = append(numbers, int(n))
	}
	sort.Ints(numbers)

	var out []byte
	for _, n := range numbers {
		out = append(out, u.parts[int8(n)]...)
	}
	return out, nil
}

// Abort discards the upload, if present. Aborting an absent or
// already-completed upload is not an error: DeleteObject with an
// upload_id is idempotent per spec.md.
func (r *Registry) Abort(uploadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.uploads, uploadID)
}

func (r *Registry) lookup(uploadID string) (*upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[uploadID]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *Registry) remove(uploadID string) (*upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[uploadID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.uploads, uploadID)
	return u, nil
}

// Len reports the number of in-flight uploads, mainly for tests and
// health reporting.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.uploads)
}
