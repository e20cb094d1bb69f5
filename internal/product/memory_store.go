package product

import (
	"context"
	"sort"
	"sync"

	"github.com/mbd888/strata/internal/pagination"
)

// MemoryStore is an in-memory product store for demo/development.
// Each tenant gets its own instance.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*Product
}

// NewMemoryStore creates a new in-memory product store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]*Product)}
}

func (m *MemoryStore) Create(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, cursor *pagination.Cursor, limit int) ([]*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Product, 0, len(m.products))
	for _, p := range m.products {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if cursor != nil {
		start := 0
		for i, p := range all {
			if p.CreatedAt.After(cursor.CreatedAt) ||
				(p.CreatedAt.Equal(cursor.CreatedAt) && p.ID > cursor.ID) {
				start = i
				break
			}
			start = i + 1
		}
		all = all[start:]
	}

	// Fetch limit+1 so the handler can compute has_more.
	if limit > 0 && len(all) > limit+1 {
		all = all[:limit+1]
	}
	return all, nil
}

func (m *MemoryStore) Update(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products), nil
}

var _ Store = (*MemoryStore)(nil)
