package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	errs "scrapeguard/pkg/errors"
)

// Manager handles the files in one data directory
type Manager struct {
	dir string
	mu  sync.RWMutex
}

// NewManager creates a new storage manager rooted at dir
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the data directory path
func (m *Manager) Dir() string {
	return m.dir
}

// Path resolves name inside the data directory. Absolute names are returned
// unchanged.
func (m *Manager) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.dir, name)
}

// WriteJSON encodes v and atomically replaces name with it
func (m *Manager) WriteJSON(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return m.WriteFile(name, data)
}

// WriteFile atomically replaces name with data, readable by the owner only
func (m *Manager) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return WriteFileAtomic(m.Path(name), data, 0600)
}

// ReadFile returns the contents of name. A missing file is a not found error.
func (m *Manager) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.NewNotFoundError(fmt.Sprintf("%s does not exist", name), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether name is present
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Remove deletes each named file. Files that do not exist are skipped. The
// paths actually removed are returned even when a later removal fails.
func (m *Manager) Remove(names ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	var failures []error
	for _, name := range names {
		path := m.Path(name)
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			failures = append(failures, fmt.Errorf("failed to remove %s: %w", name, err))
		}
	}
	return removed, errors.Join(failures...)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
