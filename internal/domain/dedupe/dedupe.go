// Package dedupe tracks keys that were already handled, such as video IDs
// within a candidate batch or keywords within a batch search.
package dedupe

import (
	"context"
	"strings"
	"sync"
)

// Deduper records seen keys so each one is processed at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryDeduper keeps keys in a map for the lifetime of one request.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	fold bool
}

// NewInMemoryDeduper creates an unbounded deduper for short-lived
// per-request use.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) key(k string) string {
	if d.fold {
		return strings.ToLower(strings.TrimSpace(k))
	}
	return k
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	k := d.key(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		return true
	}
	d.seen[k] = struct{}{}
	return false
}

// Size returns the number of keys currently recorded.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
