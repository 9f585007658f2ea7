package keystore

import (
	"bytes"
	"sync"
)

// MockStore keeps key material in memory for tests
type MockStore struct {
	name string
	km   *KeyMaterial
	mu   sync.RWMutex

	// Error injection for testing
	PutError    error
	GetError    error
	DeleteError error
}

// NewMockStore creates an empty mock store
func NewMockStore(name string) *MockStore {
	if name == "" {
		name = "mock"
	}
	return &MockStore{name: name}
}

// Name identifies the store
func (m *MockStore) Name() string {
	return m.name
}

// Put stores a copy of km
func (m *MockStore) Put(km *KeyMaterial) error {
	if m.PutError != nil {
		return m.PutError
	}
	if _, err := km.KeySet(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.km = cloneMaterial(km)
	return nil
}

// Get returns a copy of the stored key material
func (m *MockStore) Get() (*KeyMaterial, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.km == nil {
		return nil, ErrKeysNotFound
	}
	return cloneMaterial(m.km), nil
}

// Delete forgets the stored key material
func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.km == nil {
		return ErrKeysNotFound
	}
	m.km = nil
	return nil
}

// Exists checks if key material is stored
func (m *MockStore) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.km != nil
}

func cloneMaterial(km *KeyMaterial) *KeyMaterial {
	return &KeyMaterial{
		Key1:      bytes.Clone(km.Key1),
		Key2:      bytes.Clone(km.Key2),
		Key3:      bytes.Clone(km.Key3),
		CreatedAt: km.CreatedAt,
	}
}
