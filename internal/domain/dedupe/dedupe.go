// Package dedupe tracks seen event ids so each score event is applied once.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen event ids.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. It returns true when id had already been recorded.
	SeenAndRecord(ctx context.Context, id string) (bool, error)

	// Unrecord forgets id so the event can be retried, e.g. after it was
	// rejected by a full queue.
	Unrecord(ctx context.Context, id string) error
}

const defaultMaxSize = 50000

type slot struct {
	id  string
	seq uint64
}

// MemoryDeduper keeps the most recent ids in memory. When bounded, the oldest
// id is forgotten first.
type MemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64
	ring    []slot
	next    int
	seq     uint64
	maxSize int
}

// NewMemoryDeduper creates an in-memory deduper.
func NewMemoryDeduper(opts ...Option) *MemoryDeduper {
	d := &MemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *MemoryDeduper) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true, nil
	}
	d.seq++
	d.seen[id] = d.seq
	if d.maxSize <= 0 {
		return false, nil
	}

	old := d.ring[d.next]
	if old.id != "" && d.seen[old.id] == old.seq {
		delete(d.seen, old.id)
	}
	d.ring[d.next] = slot{id: id, seq: d.seq}
	d.next = (d.next + 1) % d.maxSize
	return false, nil
}

// Unrecord implements Deduper.
func (d *MemoryDeduper) Unrecord(ctx context.Context, id string) error {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
	return nil
}

// Size returns the number of remembered ids.
func (d *MemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
