package ranking

import (
	"context"
	"sync"
)

// Fenced wraps an Index with a write quiesce. Scoring writes share the fence;
// Quiesce holds it exclusively so a settlement can read, commit and reset
// without scores landing in between. Reads are not fenced.
type Fenced struct {
	Index
	mu sync.RWMutex
}

// NewFenced wraps idx.
func NewFenced(idx Index) *Fenced {
	return &Fenced{Index: idx}
}

// UpsertAdd waits for any running Quiesce before writing.
func (f *Fenced) UpsertAdd(ctx context.Context, id string, delta float64) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.Index.UpsertAdd(ctx, id, delta)
}

// Quiesce runs fn while no UpsertAdd can proceed.
func (f *Fenced) Quiesce(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}
