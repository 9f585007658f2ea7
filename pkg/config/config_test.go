package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Admin.CodeFile != "admin_codes.json" {
		t.Errorf("Expected default code file to be admin_codes.json, got %s", config.Admin.CodeFile)
	}

	if config.Admin.KeysFile != "admin_keys.json" {
		t.Errorf("Expected default keys file to be admin_keys.json, got %s", config.Admin.KeysFile)
	}

	if config.Admin.PurgeOnFailure {
		t.Error("Expected purge on failure to be off by default")
	}

	if config.Keys.Source != KeySourceAuto {
		t.Errorf("Expected default key source to be auto, got %s", config.Keys.Source)
	}

	if config.License.Timeout != 15*time.Second {
		t.Errorf("Expected default license timeout to be 15s, got %v", config.License.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY1", "hex:000102030405060708090a0b0c0d0e0f")
	t.Setenv("SCRAPEGUARD_DATA_DIR", "/tmp/scrapeguard")
	t.Setenv("SCRAPEGUARD_PURGE_ON_FAILURE", "true")
	t.Setenv("SCRAPEGUARD_LICENSE_MAX_RETRIES", "5")
	t.Setenv("SCRAPEGUARD_LOG_LEVEL", "debug")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Keys.Key1 != "hex:000102030405060708090a0b0c0d0e0f" {
		t.Errorf("Expected key1 from environment, got %s", config.Keys.Key1)
	}

	if config.Admin.DataDir != "/tmp/scrapeguard" {
		t.Errorf("Expected data dir to be /tmp/scrapeguard, got %s", config.Admin.DataDir)
	}

	if !config.Admin.PurgeOnFailure {
		t.Error("Expected purge on failure to be enabled")
	}

	if config.License.MaxRetries != 5 {
		t.Errorf("Expected max retries to be 5, got %d", config.License.MaxRetries)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvLegacyNames(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY2", "legacy-key-two")
	t.Setenv("PUB_KEY", "pub")
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY3", "new-key-three")
	t.Setenv("ENCRYPTION_KEY3", "legacy-key-three")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Keys.Key2 != "legacy-key-two" {
		t.Errorf("Expected legacy key2 to be used, got %s", config.Keys.Key2)
	}
	if config.Keys.Key3 != "new-key-three" {
		t.Errorf("Expected prefixed key3 to win, got %s", config.Keys.Key3)
	}
	if config.License.PublicKey != "pub" {
		t.Errorf("Expected public key from PUB_KEY, got %s", config.License.PublicKey)
	}
}

func TestLoadFromEnvInvalidRetries(t *testing.T) {
	t.Setenv("SCRAPEGUARD_LICENSE_MAX_RETRIES", "lots")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric max retries")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
keys:
  source: config
  key1: "0123456789abcdef"
  key2: "0123456789abcdefghijklmn"
  key3: "0123456789abcdefghijklmnopqrstuv"
admin:
  data_dir: /srv/scrapeguard
  purge_on_failure: true
license:
  base_url: https://license.example.com
  timeout: 5s
logging:
  level: warn
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Keys.Source != KeySourceConfig {
		t.Errorf("Expected key source to be config, got %s", config.Keys.Source)
	}

	if config.Admin.DataDir != "/srv/scrapeguard" {
		t.Errorf("Expected data dir to be /srv/scrapeguard, got %s", config.Admin.DataDir)
	}

	if config.License.Timeout != 5*time.Second {
		t.Errorf("Expected license timeout to be 5s, got %v", config.License.Timeout)
	}

	// Values absent from the file keep their defaults
	if config.Admin.CodeFile != "admin_codes.json" {
		t.Errorf("Expected code file default to survive, got %s", config.Admin.CodeFile)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected loaded config to validate, got %v", err)
	}
}

func TestAdminPath(t *testing.T) {
	config := DefaultConfig()
	config.Admin.DataDir = "/data"

	if got := config.AdminPath("admin_codes.json"); got != filepath.Join("/data", "admin_codes.json") {
		t.Errorf("Unexpected relative path resolution: %s", got)
	}
	if got := config.AdminPath("/elsewhere/codes.json"); got != "/elsewhere/codes.json" {
		t.Errorf("Expected absolute path to pass through, got %s", got)
	}
}
