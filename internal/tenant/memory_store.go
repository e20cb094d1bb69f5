package tenant

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory tenant registry for demo/development.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant // by ID
	domains map[string]string  // domain → tenant ID
}

// NewMemoryStore creates a new in-memory tenant registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]*Tenant),
		domains: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[t.ID]; exists {
		return ErrIDTaken
	}
	for _, d := range t.Domains {
		if _, exists := m.domains[d]; exists {
			return ErrDomainTaken
		}
	}

	m.tenants[t.ID] = t.Clone()
	for _, d := range t.Domains {
		m.domains[d] = t.ID
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryStore) GetByDomain(_ context.Context, domain string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.domains[domain]
	if !ok {
		return nil, ErrNotFound
	}
	return m.tenants[id].Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.tenants[t.ID]
	if !ok {
		return ErrNotFound
	}

	// Domains may have changed; reject any new domain owned elsewhere
	// before touching the mappings.
	for _, d := range t.Domains {
		if owner, exists := m.domains[d]; exists && owner != t.ID {
			return ErrDomainTaken
		}
	}

	for _, d := range old.Domains {
		delete(m.domains, d)
	}
	m.tenants[t.ID] = t.Clone()
	for _, d := range t.Domains {
		m.domains[d] = t.ID
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return ErrNotFound
	}
	for _, d := range t.Domains {
		delete(m.domains, d)
	}
	delete(m.tenants, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
