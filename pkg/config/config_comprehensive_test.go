package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validKeys() KeysConfig {
	return KeysConfig{
		Key1:   "0123456789abcdef",
		Key2:   "hex:" + strings.Repeat("ab", 24),
		Key3:   "base64:" + base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))),
		Source: KeySourceConfig,
	}
}

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []byte
		wantErr bool
	}{
		{"raw", "plain-text", []byte("plain-text"), false},
		{"hex", "hex:00ff10", []byte{0x00, 0xff, 0x10}, false},
		{"base64", "base64:AAEC", []byte{0, 1, 2}, false},
		{"bad hex", "hex:zz", nil, true},
		{"bad base64", "base64:***", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeKey(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeKeyRoundTrip(t *testing.T) {
	key := []byte{1, 2, 3, 250}
	got, err := DecodeKey(EncodeKey(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestKeysDecode(t *testing.T) {
	k1, k2, k3, err := validKeys().Decode()
	require.NoError(t, err)
	assert.Len(t, k1, 16)
	assert.Len(t, k2, 24)
	assert.Len(t, k3, 32)

	short := validKeys()
	short.Key3 = "too-short"
	_, _, _, err = short.Decode()
	assert.ErrorContains(t, err, "key3 must be 32 bytes, got 9")

	missing := validKeys()
	missing.Key2 = ""
	_, _, _, err = missing.Decode()
	assert.ErrorContains(t, err, "key2 is not set")
}

func TestKeysMasked(t *testing.T) {
	masked := validKeys().Masked()
	assert.Equal(t, "********", masked.Key1)
	assert.Equal(t, KeySourceConfig, masked.Source)
	assert.Empty(t, KeysConfig{}.Masked().Key1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:   "valid inline keys",
			mutate: func(c *Config) { c.Keys = validKeys() },
		},
		{
			name:    "config source without keys",
			mutate:  func(c *Config) { c.Keys.Source = KeySourceConfig },
			wantErr: "key1, key2 and key3 are required",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Keys.Source = "vault" },
			wantErr: "invalid key source",
		},
		{
			name: "wrong key length",
			mutate: func(c *Config) {
				c.Keys = validKeys()
				c.Keys.Key1 = "short"
			},
			wantErr: "key1 must be 16 bytes",
		},
		{
			name:    "same code and keys file",
			mutate:  func(c *Config) { c.Admin.KeysFile = c.Admin.CodeFile },
			wantErr: "must differ",
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.Admin.DataDir = "" },
			wantErr: "data directory is required",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.License.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
		{
			name: "audit without path",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.Path = ""
			},
			wantErr: "audit path is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Admin.DataDir = ""
	cfg.Logging.Level = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory is required")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Admin.DataDir = "/srv/codes"
	cfg.Audit.Enabled = true
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "admin")
	assert.Contains(t, raw, "keys")

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("admin: [unclosed"), 0644))
	assert.ErrorContains(t, cfg.LoadFromFile(bad), "failed to parse config file")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"data-dir":         "/flags",
		"key-source":       KeySourceKeyring,
		"purge-on-failure": true,
		"audit":            true,
		"log-level":        "error",
		"base-url":         "",
	})

	assert.Equal(t, "/flags", cfg.Admin.DataDir)
	assert.Equal(t, KeySourceKeyring, cfg.Keys.Source)
	assert.True(t, cfg.Admin.PurgeOnFailure)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Empty(t, cfg.License.BaseURL)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
admin:
  data_dir: /from/file
logging:
  level: warn
license:
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("SCRAPEGUARD_LOG_LEVEL", "error")

	cfg, err := Load(path, map[string]interface{}{"data-dir": "/from/flags"})
	require.NoError(t, err)

	assert.Equal(t, "/from/flags", cfg.Admin.DataDir)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 2*time.Second, cfg.License.Timeout)
}

func TestLoadFailsValidation(t *testing.T) {
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY1", "short")
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY2", "")
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY3", "")
	t.Setenv("HOME", t.TempDir())

	_, err := Load("", nil)
	assert.ErrorContains(t, err, "key1 must be 16 bytes")
}
