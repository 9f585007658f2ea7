package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"scrapeguard/pkg/config"
	"scrapeguard/pkg/logger"
	"scrapeguard/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dataDir    string
	keySource  string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrapeguard",
	Short: "Admin code generation and verification for the scraper toolkit",
	Long: `scrapeguard issues and checks the admin codes that unlock the
admin-only scraping scripts.

An admin code is the string "ADMIN_CODE_<username>" pushed through eight
chained CBC stages (AES, 3DES and Blowfish under three keys). The resulting
16-field bundle is saved as JSON next to the client files and is verified by
decrypting it and comparing against the claimed username.

Keys are read from configuration, the system keychain or a passphrase
encrypted key file, in that order.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version

		ui.SetQuietMode(quiet)
		ui.SetNoColor(noColor)

		// Don't show logo for certain commands
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Denials have already been reported
		if !errors.Is(err, errDenied) {
			ui.PrintError("Error", err.Error())
		}
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.scrapeguard.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the admin code and key files")
	rootCmd.PersistentFlags().StringVar(&keySource, "key-source", "", "where to read keys from (auto, config, keyring, file)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	// Version template
	rootCmd.SetVersionTemplate(`scrapeguard {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags for config.Load
func globalFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"data-dir":   dataDir,
		"key-source": keySource,
		"log-level":  logLevel,
	}
	if quiet && logLevel == "" {
		flags["log-level"] = "error"
	}
	return flags
}

// loadConfig loads configuration with flag overrides and sets up the global
// logger from it.
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := globalFlags()
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.LogComponentStart("cli", map[string]interface{}{
		"command":    cmd.CommandPath(),
		"data_dir":   cfg.Admin.DataDir,
		"key_source": cfg.Keys.Source,
	})

	return cfg, nil
}
