package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for scrapeguard
type Config struct {
	// Pipeline key material
	Keys KeysConfig `yaml:"keys" json:"keys"`

	// Admin code files and failure policy
	Admin AdminConfig `yaml:"admin" json:"admin"`

	// Remote API key validation
	License LicenseConfig `yaml:"license" json:"license"`

	// Verification audit trail
	Audit AuditConfig `yaml:"audit" json:"audit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// KeysConfig holds the three pipeline keys and where to read them from
type KeysConfig struct {
	// Key values are "hex:<hex>", "base64:<std base64>" or raw text
	Key1   string `yaml:"key1" json:"key1"`
	Key2   string `yaml:"key2" json:"key2"`
	Key3   string `yaml:"key3" json:"key3"`
	Source string `yaml:"source" json:"source"`
}

// AdminConfig holds admin code storage settings
type AdminConfig struct {
	DataDir        string `yaml:"data_dir" json:"data_dir"`
	CodeFile       string `yaml:"code_file" json:"code_file"`
	KeysFile       string `yaml:"keys_file" json:"keys_file"`
	PurgeOnFailure bool   `yaml:"purge_on_failure" json:"purge_on_failure"`
}

// LicenseConfig holds the remote key validation endpoint
type LicenseConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	PublicKey         string        `yaml:"public_key" json:"public_key"`
	SecretKey         string        `yaml:"secret_key" json:"secret_key"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// AuditConfig holds the verification audit log settings
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Key sources
const (
	KeySourceConfig  = "config"
	KeySourceKeyring = "keyring"
	KeySourceFile    = "file"
	KeySourceAuto    = "auto"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Keys: KeysConfig{
			Source: KeySourceAuto,
		},
		Admin: AdminConfig{
			DataDir:        ".",
			CodeFile:       "admin_codes.json",
			KeysFile:       "admin_keys.json",
			PurgeOnFailure: false,
		},
		License: LicenseConfig{
			Timeout:           15 * time.Second,
			MaxRetries:        3,
			RequestsPerMinute: 30,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "audit",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// firstEnv returns the first non-empty environment variable among names
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// ENCRYPTION_KEYn are the names older deployments use
	if v := firstEnv("SCRAPEGUARD_ENCRYPTION_KEY1", "ENCRYPTION_KEY1"); v != "" {
		c.Keys.Key1 = v
	}
	if v := firstEnv("SCRAPEGUARD_ENCRYPTION_KEY2", "ENCRYPTION_KEY2"); v != "" {
		c.Keys.Key2 = v
	}
	if v := firstEnv("SCRAPEGUARD_ENCRYPTION_KEY3", "ENCRYPTION_KEY3"); v != "" {
		c.Keys.Key3 = v
	}
	if v := os.Getenv("SCRAPEGUARD_KEY_SOURCE"); v != "" {
		c.Keys.Source = v
	}

	if v := os.Getenv("SCRAPEGUARD_DATA_DIR"); v != "" {
		c.Admin.DataDir = v
	}
	if v := os.Getenv("SCRAPEGUARD_PURGE_ON_FAILURE"); v != "" {
		c.Admin.PurgeOnFailure = strings.ToLower(v) == "true"
	}

	if v := firstEnv("SCRAPEGUARD_BASE_URL", "BASE_URL"); v != "" {
		c.License.BaseURL = v
	}
	if v := firstEnv("SCRAPEGUARD_PUB_KEY", "PUB_KEY"); v != "" {
		c.License.PublicKey = v
	}
	if v := firstEnv("SCRAPEGUARD_SEC_KEY", "SEC_KEY"); v != "" {
		c.License.SecretKey = v
	}
	if v := os.Getenv("SCRAPEGUARD_LICENSE_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SCRAPEGUARD_LICENSE_MAX_RETRIES: %w", err)
		}
		c.License.MaxRetries = n
	}

	if v := os.Getenv("SCRAPEGUARD_AUDIT_ENABLED"); v != "" {
		c.Audit.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("SCRAPEGUARD_AUDIT_PATH"); v != "" {
		c.Audit.Path = v
	}

	if logLevel := os.Getenv("SCRAPEGUARD_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("SCRAPEGUARD_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".scrapeguard.yaml",
		".scrapeguard.yml",
		filepath.Join(home, ".config", "scrapeguard", "config.yaml"),
		filepath.Join(home, ".config", "scrapeguard", "config.yml"),
		filepath.Join(home, ".scrapeguard.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate keys
	switch c.Keys.Source {
	case KeySourceConfig:
		if c.Keys.Key1 == "" || c.Keys.Key2 == "" || c.Keys.Key3 == "" {
			errs = append(errs, errors.New("key1, key2 and key3 are required when keys.source is config"))
		}
	case KeySourceKeyring, KeySourceFile, KeySourceAuto:
	default:
		errs = append(errs, fmt.Errorf("invalid key source %q", c.Keys.Source))
	}
	if c.Keys.Key1 != "" || c.Keys.Key2 != "" || c.Keys.Key3 != "" {
		if _, _, _, err := c.Keys.Decode(); err != nil {
			errs = append(errs, err)
		}
	}

	// Validate admin files
	if c.Admin.DataDir == "" {
		errs = append(errs, errors.New("admin data directory is required"))
	}
	if c.Admin.CodeFile == "" {
		errs = append(errs, errors.New("admin code file is required"))
	}
	if c.Admin.KeysFile == "" {
		errs = append(errs, errors.New("admin keys file is required"))
	}
	if c.Admin.CodeFile != "" && c.Admin.CodeFile == c.Admin.KeysFile {
		errs = append(errs, errors.New("admin code file and keys file must differ"))
	}

	// Validate license client
	if c.License.Timeout <= 0 {
		errs = append(errs, errors.New("license timeout must be positive"))
	}
	if c.License.MaxRetries < 0 {
		errs = append(errs, errors.New("license max retries cannot be negative"))
	}
	if c.License.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("license requests per minute must be positive"))
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, errors.New("audit path is required when audit is enabled"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// AdminPath resolves a file name relative to the admin data directory
func (c *Config) AdminPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Admin.DataDir, name)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Admin.DataDir = dataDir
	}
	if source, ok := flags["key-source"].(string); ok && source != "" {
		c.Keys.Source = source
	}
	if purge, ok := flags["purge-on-failure"].(bool); ok {
		c.Admin.PurgeOnFailure = purge
	}
	if audit, ok := flags["audit"].(bool); ok {
		c.Audit.Enabled = audit
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.License.BaseURL = baseURL
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".scrapeguard.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
