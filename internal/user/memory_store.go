package user

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory user store for demo/development.
// Each tenant gets its own instance.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	emails map[string]string // lowercased email → ID
}

// NewMemoryStore creates a new in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*User),
		emails: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := m.emails[email]; exists {
		return ErrEmailTaken
	}

	cp := *u
	m.users[u.ID] = &cp
	m.emails[email] = u.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}

	email := strings.ToLower(u.Email)
	if owner, exists := m.emails[email]; exists && owner != u.ID {
		return ErrEmailTaken
	}

	delete(m.emails, strings.ToLower(old.Email))
	cp := *u
	m.users[u.ID] = &cp
	m.emails[email] = u.ID
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.emails, strings.ToLower(u.Email))
	delete(m.users, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
