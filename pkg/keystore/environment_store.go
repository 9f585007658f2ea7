package keystore

import (
	"scrapeguard/pkg/config"
)

// EnvironmentStore serves keys from configuration values, which include the
// SCRAPEGUARD_ENCRYPTION_KEYn and ENCRYPTION_KEYn environment variables
type EnvironmentStore struct {
	keys config.KeysConfig
}

// NewEnvironmentStore creates a store over already loaded key settings
func NewEnvironmentStore(keys config.KeysConfig) *EnvironmentStore {
	return &EnvironmentStore{keys: keys}
}

// Name identifies the store
func (e *EnvironmentStore) Name() string {
	return "environment"
}

// Put is not supported for configuration values
func (e *EnvironmentStore) Put(km *KeyMaterial) error {
	return ErrReadOnly
}

// Get decodes the configured keys
func (e *EnvironmentStore) Get() (*KeyMaterial, error) {
	if !e.keys.IsSet() {
		return nil, ErrKeysNotFound
	}
	k1, k2, k3, err := e.keys.Decode()
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{Key1: k1, Key2: k2, Key3: k3}, nil
}

// Delete is not supported for configuration values
func (e *EnvironmentStore) Delete() error {
	return ErrReadOnly
}

// Exists checks if any key is configured
func (e *EnvironmentStore) Exists() bool {
	return e.keys.IsSet()
}
