package keystore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "scrapeguard"
	keyringUser    = "pipeline_keys"
)

// KeyringStore keeps key material in the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring store after checking the keychain works
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("%w: keyring: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Name identifies the store
func (k *KeyringStore) Name() string {
	return "keyring"
}

// Put saves key material to the system keychain
func (k *KeyringStore) Put(km *KeyMaterial) error {
	if _, err := km.KeySet(); err != nil {
		return err
	}
	data, err := json.Marshal(km)
	if err != nil {
		return fmt.Errorf("failed to marshal keys: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Get reads key material from the system keychain
func (k *KeyringStore) Get() (*KeyMaterial, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrKeysNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var km KeyMaterial
	if err := json.Unmarshal([]byte(data), &km); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keys: %w", err)
	}
	return &km, nil
}

// Delete removes key material from the system keychain
func (k *KeyringStore) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrKeysNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if key material is in the keychain
func (k *KeyringStore) Exists() bool {
	_, err := keyring.Get(keyringService, keyringUser)
	return err == nil
}
