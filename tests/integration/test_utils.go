package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scrapeguard/pkg/config"
	"scrapeguard/pkg/keystore"
	"scrapeguard/pkg/logger"
)

// TestHelper provides common test utilities
type TestHelper struct {
	t          *testing.T
	mockServer *MockLicenseServer
	tempDir    string
	logger     *logger.TestLogger
}

// NewTestHelper creates a new test helper rooted at a fresh temp dir. HOME
// is pointed there too so no user config leaks into the test.
func NewTestHelper(t *testing.T) *TestHelper {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv(keystore.PassphraseEnv, "integration-passphrase")

	return &TestHelper{
		t:       t,
		tempDir: tempDir,
		logger:  logger.NewTestLogger(),
	}
}

// SetupMockServer initializes the mock license server
func (h *TestHelper) SetupMockServer() *MockLicenseServer {
	h.mockServer = NewMockLicenseServer()
	h.t.Cleanup(h.mockServer.Close)
	return h.mockServer
}

// GetTempDir returns the temporary directory for test files
func (h *TestHelper) GetTempDir() string {
	return h.tempDir
}

// Logger returns the capturing logger shared by the test
func (h *TestHelper) Logger() *logger.TestLogger {
	return h.logger
}

// CreateTestConfig returns a configuration rooted in the temp dir that
// reads keys from the encrypted key file.
func (h *TestHelper) CreateTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Keys.Source = config.KeySourceFile
	cfg.Admin.DataDir = filepath.Join(h.tempDir, "client")
	cfg.Audit.Enabled = true
	cfg.Logging.Level = "debug"
	cfg.License.Timeout = 2 * time.Second
	cfg.License.MaxRetries = 2
	if h.mockServer != nil {
		cfg.License.BaseURL = h.mockServer.GetURL()
	}
	return cfg
}

// WriteConfigFile saves cfg as YAML and returns its path
func (h *TestHelper) WriteConfigFile(cfg *config.Config) string {
	path := filepath.Join(h.tempDir, "scrapeguard.yaml")
	if err := cfg.Save(path); err != nil {
		h.t.Fatalf("Failed to save config: %v", err)
	}
	return path
}

// AssertFileExists checks if a file exists
func (h *TestHelper) AssertFileExists(path string) {
	h.t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		h.t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func (h *TestHelper) AssertFileNotExists(path string) {
	h.t.Helper()
	if _, err := os.Stat(path); err == nil {
		h.t.Errorf("Expected file not to exist: %s", path)
	}
}

// AssertFileNotContains checks that a file does not contain text
func (h *TestHelper) AssertFileNotContains(path string, text string) {
	h.t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("Failed to read file %s: %v", path, err)
	}
	if strings.Contains(string(data), text) {
		h.t.Errorf("File %s unexpectedly contains %q", path, text)
	}
}
