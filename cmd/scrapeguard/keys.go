package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"scrapeguard/pkg/config"
	"scrapeguard/pkg/keystore"
	"scrapeguard/pkg/ui"
)

var (
	keysForce            bool
	keysImport           bool
	keysPrint            bool
	keysPromptPassphrase bool
	keysYes              bool

	// stdin is shared by every prompt
	stdin = bufio.NewReader(os.Stdin)
)

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the three pipeline keys",
	Long: `Manage the three pipeline keys (16, 24 and 32 bytes).

Keys are stored using:
  - Configuration values or ENCRYPTION_KEY1..3 (read only)
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

Never share your keys! Anyone holding them can mint admin codes.`,
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate or import keys and store them",
	Example: `  # Generate random keys into the first writable store
  scrapeguard keys init

  # Store keys in the encrypted file, protected by a passphrase you type
  scrapeguard keys init --key-source file --prompt-passphrase

  # Type existing keys instead of generating new ones
  scrapeguard keys init --import`,
	Args: cobra.NoArgs,
	RunE: runKeysInit,
}

var keysStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which stores hold keys",
	Args:  cobra.NoArgs,
	RunE:  runKeysStatus,
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove stored keys",
	Long: `Remove keys from the keychain and the encrypted key file.

Keys given in configuration or environment variables are left alone.
Existing admin codes cannot be verified after their keys are deleted.`,
	Args: cobra.NoArgs,
	RunE: runKeysDelete,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysStatusCmd)
	keysCmd.AddCommand(keysDeleteCmd)

	keysCmd.PersistentFlags().BoolVar(&keysPromptPassphrase, "prompt-passphrase", false, "ask for the key file passphrase instead of using "+keystore.PassphraseEnv)
	keysInitCmd.Flags().BoolVar(&keysForce, "force", false, "replace keys that already exist")
	keysInitCmd.Flags().BoolVar(&keysImport, "import", false, "type existing keys instead of generating them")
	keysInitCmd.Flags().BoolVar(&keysPrint, "print", false, "print the keys in a form usable as environment variables")
	keysDeleteCmd.Flags().BoolVarP(&keysYes, "yes", "y", false, "do not ask for confirmation")
}

// openKeys loads config and builds the key store chain
func openKeys(cmd *cobra.Command) (*keystore.Manager, error) {
	if keysPromptPassphrase {
		fmt.Print("Key file passphrase: ")
		passphrase, err := readPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		if passphrase == "" {
			return nil, errors.New("passphrase cannot be empty")
		}
		os.Setenv(keystore.PassphraseEnv, passphrase)
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, err
	}
	return keystore.NewManagerFromConfig(cfg)
}

func runKeysInit(cmd *cobra.Command, args []string) error {
	keys, err := openKeys(cmd)
	if err != nil {
		return err
	}

	if _, source, err := keys.Resolve(); err == nil && !keysForce {
		ui.PrintWarning("Keys already exist", source)
		ui.Println("\nReplacing them invalidates every saved admin code. Use --force to continue.")
		return errDenied
	}

	var km *keystore.KeyMaterial
	if keysImport {
		km, err = promptKeys()
	} else {
		km, err = keystore.Generate()
	}
	if err != nil {
		return err
	}

	name, err := keys.Put(km)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Keys stored successfully")
	ui.PrintInfo("Store", name)
	ui.PrintInfo("Fingerprint", km.Fingerprint())

	if keysPrint {
		fmt.Println()
		fmt.Printf("SCRAPEGUARD_ENCRYPTION_KEY1=%s\n", config.EncodeKey(km.Key1))
		fmt.Printf("SCRAPEGUARD_ENCRYPTION_KEY2=%s\n", config.EncodeKey(km.Key2))
		fmt.Printf("SCRAPEGUARD_ENCRYPTION_KEY3=%s\n", config.EncodeKey(km.Key3))
	}
	return nil
}

// promptKeys reads three keys without echo
func promptKeys() (*keystore.KeyMaterial, error) {
	ui.Println("Enter each key as raw text, hex:<hex> or base64:<base64>.")

	var values [3]string
	for i, size := range []int{16, 24, 32} {
		fmt.Printf("key%d (%d bytes): ", i+1, size)
		v, err := readPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to read key%d: %w", i+1, err)
		}
		values[i] = v
	}

	k1, k2, k3, err := config.KeysConfig{Key1: values[0], Key2: values[1], Key3: values[2]}.Decode()
	if err != nil {
		return nil, err
	}
	return &keystore.KeyMaterial{Key1: k1, Key2: k2, Key3: k3}, nil
}

func runKeysStatus(cmd *cobra.Command, args []string) error {
	keys, err := openKeys(cmd)
	if err != nil {
		return err
	}

	ui.PrintHighlight("Key Stores")
	fmt.Println()

	active, _, _ := keys.Resolve()
	for i, st := range keys.Status() {
		fmt.Printf("%d. %s\n", i+1, st.Name)
		switch {
		case st.Err != nil:
			fmt.Printf("   Status: %s\n", ui.Red("error: "+st.Err.Error()))
		case st.HasKeys:
			marker := ""
			if active != nil && active.Fingerprint() == st.Fingerprint {
				marker = " (active)"
			}
			fmt.Printf("   Status: %s%s\n", ui.Green("keys present"), marker)
			fmt.Printf("   Fingerprint: %s\n", st.Fingerprint)
		default:
			fmt.Printf("   Status: %s\n", ui.Dim("empty"))
		}
	}
	return nil
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	keys, err := openKeys(cmd)
	if err != nil {
		return err
	}

	if !keysYes {
		fmt.Print("Delete stored keys? Saved admin codes will stop working. (y/N): ")
		input, _ := stdin.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	if err := keys.Delete(); err != nil {
		if errors.Is(err, keystore.ErrKeysNotFound) {
			ui.PrintWarning("No stored keys found")
			return nil
		}
		return err
	}
	ui.PrintSuccess("Keys deleted")
	return nil
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	input, err := stdin.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
