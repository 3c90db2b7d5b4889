package session

import "sync"

// MemoryIdentity keeps the identity in memory. Useful for tests and ephemeral sessions.
type MemoryIdentity struct {
	mu   sync.Mutex
	name string
}

// NewMemoryIdentity returns a store preloaded with name ("" for none).
func NewMemoryIdentity(name string) *MemoryIdentity {
	return &MemoryIdentity{name: name}
}

func (m *MemoryIdentity) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, nil
}

func (m *MemoryIdentity) Save(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return nil
}

func (m *MemoryIdentity) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = ""
	return nil
}
