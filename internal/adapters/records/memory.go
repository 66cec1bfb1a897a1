package records

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/okian/podium/internal/domain/model"
)

// MemoryStore is an in-process Store. Balances live in a map guarded by a
// single mutex, which also makes ApplyEarnings trivially all-or-nothing.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]model.Participant
	byName map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]model.Participant),
		byName: make(map[string]string),
	}
}

// GetByID implements Store.GetByID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return model.Participant{}, ErrNotFound
	}
	return p, nil
}

// IDByName implements Store.IDByName.
func (m *MemoryStore) IDByName(ctx context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

// SearchNames implements Store.SearchNames.
func (m *MemoryStore) SearchNames(ctx context.Context, partial string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	needle := foldName(partial)

	m.mu.RLock()
	type hit struct {
		name   string
		prefix bool
	}
	hits := make([]hit, 0)
	for name := range m.byName {
		lower := foldName(name)
		if strings.Contains(lower, needle) {
			hits = append(hits, hit{name: name, prefix: strings.HasPrefix(lower, needle)})
		}
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].prefix != hits[j].prefix {
			return hits[i].prefix
		}
		return hits[i].name < hits[j].name
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out, nil
}

// ApplyEarnings implements Store.ApplyEarnings.
func (m *MemoryStore) ApplyEarnings(ctx context.Context, updates []model.EarningsUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		p, ok := m.byID[u.ID]
		if !ok {
			continue
		}
		p.Balance += u.Delta
		m.byID[u.ID] = p
	}
	return nil
}

// Exists implements Store.Exists.
func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[id]
	return ok, nil
}

// Insert implements Store.Insert.
func (m *MemoryStore) Insert(ctx context.Context, p model.Participant) error {
	if p.ID == "" || p.Name == "" {
		return ErrInvalidRequest
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := m.byName[p.Name]; ok {
		return ErrAlreadyExists
	}
	m.byID[p.ID] = p
	m.byName[p.Name] = p.ID
	return nil
}
