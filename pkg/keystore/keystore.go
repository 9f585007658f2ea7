// Package keystore resolves the three pipeline keys from wherever an
// installation keeps them: configuration values, the system keychain or a
// passphrase encrypted key file.
package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	errs "scrapeguard/pkg/errors"
	"scrapeguard/pkg/pipeline"
)

// KeyMaterial is the serialisable form of a pipeline key set
type KeyMaterial struct {
	Key1      []byte    `json:"key1"`
	Key2      []byte    `json:"key2"`
	Key3      []byte    `json:"key3"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the interface for storing and retrieving key material
type Store interface {
	// Name identifies the store in status output
	Name() string

	// Put saves key material, replacing any existing keys
	Put(km *KeyMaterial) error

	// Get returns the stored key material
	Get() (*KeyMaterial, error)

	// Delete removes the stored key material
	Delete() error

	// Exists checks if key material is present
	Exists() bool
}

// Errors
var (
	ErrKeysNotFound     = errs.New(errs.ErrorTypeNotFound, "keys not found")
	ErrStoreUnavailable = errors.New("key store unavailable")
	ErrReadOnly         = errors.New("key store is read only")
)

// Generate creates fresh random key material of the required lengths
func Generate() (*KeyMaterial, error) {
	ks, err := pipeline.GenerateKeySet()
	if err != nil {
		return nil, err
	}
	return FromKeySet(ks), nil
}

// FromKeySet copies a key set into key material
func FromKeySet(ks *pipeline.KeySet) *KeyMaterial {
	return &KeyMaterial{
		Key1:      ks.Key(pipeline.Key1),
		Key2:      ks.Key(pipeline.Key2),
		Key3:      ks.Key(pipeline.Key3),
		CreatedAt: time.Now().UTC(),
	}
}

// KeySet validates the key lengths and builds a pipeline key set
func (km *KeyMaterial) KeySet() (*pipeline.KeySet, error) {
	if km == nil {
		return nil, ErrKeysNotFound
	}
	return pipeline.NewKeySet(km.Key1, km.Key2, km.Key3)
}

// Fingerprint is a short non-secret identifier for display
func (km *KeyMaterial) Fingerprint() string {
	ks, err := km.KeySet()
	if err != nil {
		return "invalid"
	}
	return ks.Fingerprint()
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "scrapeguard")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "scrapeguard")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "scrapeguard")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "scrapeguard")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}
