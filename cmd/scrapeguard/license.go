package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"scrapeguard/pkg/license"
	"scrapeguard/pkg/ui"
)

var licenseBaseURL string

// licenseCmd represents the license command
var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Check API keys against the license server",
}

var licenseCheckCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Check the configured public and secret key for a username",
	Long: `Check the configured public and secret key for a username.

The keys come from license.public_key and license.secret_key, or the
SCRAPEGUARD_PUB_KEY/PUB_KEY and SCRAPEGUARD_SEC_KEY/SEC_KEY variables.`,
	Args: cobra.ExactArgs(1),
	RunE: runLicenseCheck,
}

func init() {
	rootCmd.AddCommand(licenseCmd)
	licenseCmd.AddCommand(licenseCheckCmd)

	licenseCheckCmd.Flags().StringVar(&licenseBaseURL, "base-url", "", "license server endpoint")
}

func runLicenseCheck(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := loadConfig(cmd, map[string]interface{}{"base-url": licenseBaseURL})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := license.NewClientFromConfig(&cfg.License)
	ok, err := client.CheckKeys(ctx, cfg.License.PublicKey, cfg.License.SecretKey, username)
	if err != nil {
		return fmt.Errorf("license server unavailable: %w", err)
	}
	if !ok {
		ui.PrintError("API keys are invalid.")
		return errDenied
	}

	ui.PrintSuccess("API keys are valid.")
	return nil
}
