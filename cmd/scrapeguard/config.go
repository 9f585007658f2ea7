package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"scrapeguard/pkg/config"
	"scrapeguard/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage scrapeguard configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SCRAPEGUARD_*, plus ENCRYPTION_KEY1..3,
    BASE_URL, PUB_KEY and SEC_KEY)
  - .env and ~/.scrapeguard.env
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.scrapeguard.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources.

Keys and the license secret are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Key source and key lengths
  - Admin file names and data directory
  - License and logging settings`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# scrapeguard configuration file
#
# Every option can also be set with an environment variable prefixed with
# SCRAPEGUARD_, for example SCRAPEGUARD_ENCRYPTION_KEY1 or SCRAPEGUARD_DATA_DIR.

# Pipeline keys
keys:
  # Where to read keys from: auto, config, keyring or file
  # auto tries these values, then the system keychain, then the key file
  source: "auto"

  # Key values: raw text, "hex:<hex>" or "base64:<base64>"
  # key1 is 16 bytes (AES), key2 24 bytes (3DES), key3 32 bytes (Blowfish)
  # Prefer 'scrapeguard keys init' over writing keys here
  key1: ""
  key2: ""
  key3: ""

# Admin code files
admin:
  # Directory holding the admin code and key files
  data_dir: "."

  # Saved admin code bundle
  code_file: "admin_codes.json"

  # Encrypted key file, used by the file key source
  keys_file: "admin_keys.json"

  # Remove both files when a verification is denied
  purge_on_failure: false

# Remote API key check
license:
  base_url: ""
  public_key: ""
  secret_key: ""
  timeout: 15s
  max_retries: 3
  requests_per_minute: 30

# Verification audit trail
audit:
  enabled: false
  # Relative paths are resolved against admin.data_dir
  path: "audit"

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stderr only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".scrapeguard.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return errDenied
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.Println("\nNext steps:")
	ui.Println("1. Run 'scrapeguard keys init' to create the pipeline keys")
	ui.Println("2. Run 'scrapeguard config validate' to check the configuration")
	ui.Println("3. Issue a code with 'scrapeguard admin generate <username>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	// Create a sanitized version for display
	displayCfg := *cfg
	displayCfg.Keys = cfg.Keys.Masked()
	if displayCfg.License.SecretKey != "" {
		displayCfg.License.SecretKey = "********"
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (SCRAPEGUARD_*)")
	fmt.Println("3. .env files")
	if configFile != "" {
		fmt.Printf("4. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("4. Configuration file: (searched default locations)")
	}
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		ui.PrintError("Configuration has errors:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("  - %s\n", line)
		}
		return errDenied
	}

	var warnings []string
	if cfg.Keys.Source == config.KeySourceAuto && !cfg.Keys.IsSet() {
		warnings = append(warnings, "keys are not set in configuration; the keychain or key file must hold them")
	}
	if cfg.License.BaseURL == "" {
		warnings = append(warnings, "license base_url not configured; 'license check' will fail")
	}
	if cfg.Admin.PurgeOnFailure {
		warnings = append(warnings, "purge_on_failure deletes client files on every denied check")
	}
	if info, err := os.Stat(cfg.Admin.DataDir); err == nil && !info.IsDir() {
		ui.PrintError("Admin data directory is not a directory", cfg.Admin.DataDir)
		return errDenied
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			ui.Printf("  - %s\n", warn)
		}
		ui.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	ui.Println("\nConfiguration summary:")
	ui.Printf("  Key source: %s\n", cfg.Keys.Source)
	ui.Printf("  Admin code file: %s\n", cfg.AdminPath(cfg.Admin.CodeFile))
	ui.Printf("  Key file: %s\n", cfg.AdminPath(cfg.Admin.KeysFile))
	ui.Printf("  Purge on failure: %t\n", cfg.Admin.PurgeOnFailure)
	ui.Printf("  Audit: %t\n", cfg.Audit.Enabled)
	ui.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
