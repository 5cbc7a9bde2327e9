// Package blobstore allocates process-local revocable handles over
// in-memory byte blobs. A handle is a cheap reference for preview
// rendering; it is never persisted and is invalid across restarts. The
// bytes behind a handle represent an external preview resource, so every
// handle must be explicitly revoked when it stops being reachable -
// garbage collection alone does not reclaim it.
package blobstore

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Registry owns the live handle set for one process.
type Registry struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	seq   atomic.Uint64
}

// NewRegistry constructs an empty handle registry.
func NewRegistry() *Registry {
	return &Registry{blobs: make(map[string][]byte)}
}

// Allocate registers a copy of data and returns a fresh handle.
func (r *Registry) Allocate(data []byte) string {
	handle := fmt.Sprintf("blob:%d", r.seq.Add(1))
	owned := make([]byte, len(data))
	copy(owned, data)
	r.mu.Lock()
	r.blobs[handle] = owned
	r.mu.Unlock()
	return handle
}

// Resolve returns the bytes behind a handle.
func (r *Registry) Resolve(handle string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.blobs[handle]
	return data, ok
}

// Revoke frees a handle. Revoking an unknown or empty handle is a no-op,
// so callers can revoke unconditionally on rebind and teardown.
func (r *Registry) Revoke(handle string) {
	if handle == "" {
		return
	}
	r.mu.Lock()
	delete(r.blobs, handle)
	r.mu.Unlock()
}

// Outstanding reports how many handles are currently live. Used by leak
// checks around rebinding and thread teardown.
func (r *Registry) Outstanding() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
