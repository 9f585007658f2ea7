// Package admincode issues and checks admin codes: a username tagged with
// ADMIN_CODE_ and sealed through the eight stage pipeline.
//
// A Manager generates, saves and loads bundles. A Verifier runs the
// verification state machine over a loaded bundle. A Gate ties both together
// for callers that only want a yes or no, and optionally purges the client
// files when the answer is no.
//
// Verification never returns an error to the caller. Every failure becomes a
// DENIED outcome whose cause is logged.
package admincode

import (
	"encoding/json"
	"fmt"

	errs "scrapeguard/pkg/errors"
	"scrapeguard/pkg/logger"
	"scrapeguard/pkg/pipeline"
	"scrapeguard/pkg/storage"
)

// Tag prefixes every admin code plaintext
const Tag = "ADMIN_CODE_"

// DefaultCodeFile is the bundle file name inside the data directory
const DefaultCodeFile = "admin_codes.json"

// ErrNotFound matches any error reporting that no bundle has been saved
var ErrNotFound = errs.New(errs.ErrorTypeNotFound, "no admin code found")

// Plaintext returns the admin code plaintext for username
func Plaintext(username string) string {
	return Tag + username
}

// Manager generates and persists admin codes
type Manager struct {
	pipeline *pipeline.Pipeline
	store    *storage.Manager
	codeFile string
	logger   logger.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for generation and verification events
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithCodeFile overrides the bundle file name
func WithCodeFile(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.codeFile = name
		}
	}
}

// NewManager creates a manager that encrypts with p and stores bundles in store
func NewManager(p *pipeline.Pipeline, store *storage.Manager, opts ...Option) (*Manager, error) {
	if p == nil {
		return nil, errs.New(errs.ErrorTypeConfig, "pipeline is required")
	}
	if store == nil {
		return nil, errs.New(errs.ErrorTypeConfig, "storage manager is required")
	}

	m := &Manager{
		pipeline: p,
		store:    store,
		codeFile: DefaultCodeFile,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithField("component", "admincode")
	return m, nil
}

// CodeFile returns the resolved path of the bundle file
func (m *Manager) CodeFile() string {
	return m.store.Path(m.codeFile)
}

// Store returns the storage manager holding the bundle file
func (m *Manager) Store() *storage.Manager {
	return m.store
}

// Generate encrypts the admin code for username
func (m *Manager) Generate(username string) (*pipeline.Bundle, error) {
	b, err := m.pipeline.Encrypt(Plaintext(username))
	if err != nil {
		m.logger.WithError(err).Error("Failed to generate admin code")
		return nil, err
	}
	m.logger.WithField("username", username).Debug("Admin code generated")
	return b, nil
}

// Save replaces the bundle file with b
func (m *Manager) Save(b *pipeline.Bundle) error {
	if err := b.ValidateShape(); err != nil {
		return err
	}
	if err := m.store.WriteJSON(m.codeFile, b); err != nil {
		return fmt.Errorf("failed to save admin code: %w", err)
	}
	m.logger.WithField("path", m.CodeFile()).Info("Admin code saved")
	return nil
}

// Persist writes b to path instead of the configured bundle file
func (m *Manager) Persist(b *pipeline.Bundle, path string) error {
	if err := b.ValidateShape(); err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode admin code: %w", err)
	}
	if err := storage.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save admin code: %w", err)
	}
	return nil
}

// Load reads the configured bundle file
func (m *Manager) Load() (*pipeline.Bundle, error) {
	return m.LoadFrom(m.codeFile)
}

// LoadFrom reads a bundle from path. Relative paths are resolved against the
// data directory. A missing file matches ErrNotFound; anything that is not a
// well formed bundle is a malformed bundle error.
func (m *Manager) LoadFrom(path string) (*pipeline.Bundle, error) {
	data, err := m.store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pipeline.ParseBundle(data)
}

// Verifier returns a verifier bound to this manager's pipeline and logger
func (m *Manager) Verifier() *Verifier {
	return NewVerifier(m.pipeline, m.logger)
}

// Verify reports whether b decrypts to the admin code for username
func (m *Manager) Verify(b *pipeline.Bundle, username string) bool {
	return m.Verifier().Run(b, username).Granted()
}
