package session

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials for the life of the process only.
type MemoryStore struct {
	mu    sync.RWMutex
	creds *Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.creds == nil {
		return nil, ErrNoCredentials
	}
	c := *m.creds
	return &c, nil
}

func (m *MemoryStore) Save(ctx context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = &creds
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = nil
	return nil
}
