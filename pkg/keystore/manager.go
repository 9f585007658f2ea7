package keystore

import (
	"errors"
	"fmt"

	"scrapeguard/pkg/config"
	errs "scrapeguard/pkg/errors"
	"scrapeguard/pkg/pipeline"
)

// Manager resolves keys from an ordered list of stores
type Manager struct {
	stores []Store
}

// StoreStatus describes one store for display
type StoreStatus struct {
	Name        string
	HasKeys     bool
	Fingerprint string
	Err         error
}

// NewManager creates a manager over stores, consulted in order
func NewManager(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// NewManagerFromConfig builds the store chain selected by cfg.Keys.Source
func NewManagerFromConfig(cfg *config.Config) (*Manager, error) {
	fileStore := func() (Store, error) {
		return NewEncryptedFileStore(cfg.AdminPath(cfg.Admin.KeysFile))
	}

	switch cfg.Keys.Source {
	case config.KeySourceConfig:
		return NewManager(NewEnvironmentStore(cfg.Keys)), nil

	case config.KeySourceKeyring:
		ks, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		return NewManager(ks), nil

	case config.KeySourceFile:
		fs, err := fileStore()
		if err != nil {
			return nil, err
		}
		return NewManager(fs), nil

	case config.KeySourceAuto, "":
		var stores []Store
		if cfg.Keys.IsSet() {
			stores = append(stores, NewEnvironmentStore(cfg.Keys))
		}
		if ks, err := NewKeyringStore(); err == nil {
			stores = append(stores, ks)
		}
		fs, err := fileStore()
		if err != nil {
			return nil, err
		}
		stores = append(stores, fs)
		return NewManager(stores...), nil

	default:
		return nil, errs.New(errs.ErrorTypeConfig, fmt.Sprintf("unknown key source %q", cfg.Keys.Source))
	}
}

// Stores returns the store chain
func (m *Manager) Stores() []Store {
	return m.stores
}

// Resolve returns the key set from the first store that has keys, along with
// that store's name. A store that holds unreadable or wrongly sized keys
// stops the search instead of being skipped.
func (m *Manager) Resolve() (*pipeline.KeySet, string, error) {
	for _, store := range m.stores {
		km, err := store.Get()
		if errors.Is(err, ErrKeysNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", store.Name(), err)
		}
		ks, err := km.KeySet()
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", store.Name(), err)
		}
		return ks, store.Name(), nil
	}
	return nil, "", ErrKeysNotFound
}

// Put saves key material to the first writable store and returns its name
func (m *Manager) Put(km *KeyMaterial) (string, error) {
	if _, err := km.KeySet(); err != nil {
		return "", err
	}

	var lastErr error
	for _, store := range m.stores {
		err := store.Put(km)
		if err == nil {
			return store.Name(), nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to store keys: %w", lastErr)
	}
	return "", ErrStoreUnavailable
}

// Delete removes keys from every writable store
func (m *Manager) Delete() error {
	var deleted bool
	var failures []error

	for _, store := range m.stores {
		err := store.Delete()
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrKeysNotFound), errors.Is(err, ErrReadOnly):
		default:
			failures = append(failures, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	if !deleted {
		return ErrKeysNotFound
	}
	return nil
}

// Status reports what each store holds without exposing key bytes
func (m *Manager) Status() []StoreStatus {
	statuses := make([]StoreStatus, 0, len(m.stores))
	for _, store := range m.stores {
		st := StoreStatus{Name: store.Name()}
		km, err := store.Get()
		switch {
		case err == nil:
			st.HasKeys = true
			st.Fingerprint = km.Fingerprint()
		case !errors.Is(err, ErrKeysNotFound):
			st.Err = err
		}
		statuses = append(statuses, st)
	}
	return statuses
}
