package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeguard/pkg/audit"
	"scrapeguard/pkg/ui"
)

func setupCLI(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCRAPEGUARD_KEY_SOURCE", "config")
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY1", "hex:"+strings.Repeat("01", 16))
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY2", "hex:"+strings.Repeat("02", 24))
	t.Setenv("SCRAPEGUARD_ENCRYPTION_KEY3", "hex:"+strings.Repeat("03", 32))
	return t.TempDir()
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	adminOut, adminFile = "", ""
	adminPurge, adminAudit, adminTrace = false, false, false
	quiet, noColor = false, false
	batchOutDir, batchWorkers, batchOverwrite, batchRate = "", 4, false, 0
	for _, name := range []string{"purge", "audit"} {
		adminVerifyCmd.Flags().Lookup(name).Changed = false
	}
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))
	return rootCmd.Execute()
}

// runCLIOutput runs a command with output enabled and returns what it wrote
// to stdout and stderr
func runCLIOutput(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	ui.SetOutput(&stdout, &stderr)
	t.Cleanup(func() { ui.SetOutput(nil, nil) })

	err := runCLI(t, append([]string{"--quiet=false", "--no-color"}, args...)...)
	return stdout.String(), stderr.String(), err
}

func TestAdminGenerateAndVerify(t *testing.T) {
	dir := setupCLI(t)

	require.NoError(t, runCLI(t, "admin", "generate", "alice", "--data-dir", dir))
	assert.FileExists(t, filepath.Join(dir, "admin_codes.json"))

	assert.NoError(t, runCLI(t, "admin", "verify", "alice", "--data-dir", dir))
	assert.ErrorIs(t, runCLI(t, "admin", "verify", "bob", "--data-dir", dir), errDenied)
}

func TestAdminVerifyMissingCode(t *testing.T) {
	dir := setupCLI(t)
	assert.ErrorIs(t, runCLI(t, "admin", "verify", "alice", "--data-dir", dir), errDenied)
}

func TestAdminVerifyPurgesAndAudits(t *testing.T) {
	dir := setupCLI(t)

	require.NoError(t, runCLI(t, "admin", "generate", "alice", "--data-dir", dir))
	err := runCLI(t, "admin", "verify", "mallory", "--data-dir", dir, "--purge", "--audit")
	assert.ErrorIs(t, err, errDenied)

	_, statErr := os.Stat(filepath.Join(dir, "admin_codes.json"))
	assert.True(t, os.IsNotExist(statErr), "denied check should purge the admin code")

	log, err := audit.Open(filepath.Join(dir, "audit"))
	require.NoError(t, err)
	defer log.Close()

	entries, err := log.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mallory", entries[0].Username)
	assert.False(t, entries[0].Granted)
	assert.Contains(t, entries[0].Purged, filepath.Join(dir, "admin_codes.json"))
}

func TestAdminGenerateToFile(t *testing.T) {
	dir := setupCLI(t)
	out := filepath.Join(t.TempDir(), "exported.json")

	require.NoError(t, runCLI(t, "admin", "generate", "alice", "--data-dir", dir, "--out", out))
	assert.FileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "admin_codes.json"))

	assert.NoError(t, runCLI(t, "admin", "verify", "alice", "--data-dir", dir, "--file", out))
}

func TestAdminGenerateBatch(t *testing.T) {
	dir := setupCLI(t)
	outDir := filepath.Join(t.TempDir(), "codes")
	users := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, os.WriteFile(users, []byte("alice\n# staff\nbob\n\nalice\n"), 0600))

	require.NoError(t, runCLI(t, "admin", "generate-batch", users, "--data-dir", dir, "--out-dir", outDir, "--workers", "2"))
	assert.FileExists(t, filepath.Join(outDir, "admin_code_alice.json"))
	assert.FileExists(t, filepath.Join(outDir, "admin_code_bob.json"))

	for _, name := range []string{"alice", "bob"} {
		file := filepath.Join(outDir, "admin_code_"+name+".json")
		assert.NoError(t, runCLI(t, "admin", "verify", name, "--data-dir", dir, "--file", file))
	}
	assert.ErrorIs(t, runCLI(t, "admin", "verify", "bob", "--data-dir", dir,
		"--file", filepath.Join(outDir, "admin_code_alice.json")), errDenied)
}

func TestReadUsernames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, os.WriteFile(path, []byte("  carol \n#bob\ndave\ncarol\n"), 0600))

	names, err := readUsernames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "dave"}, names)

	_, err = readUsernames(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestAdminGenerateReportsFilePath(t *testing.T) {
	setupCLI(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	stdout, _, err := runCLIOutput(t, "admin", "generate", "alice", "--data-dir", "data")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join("data", "admin_codes.json"))
	assert.Contains(t, stdout, filepath.Join("data", "admin_codes.json"))
	assert.NotContains(t, stdout, filepath.Join("data", "data"))
}

func TestAdminGenerateBatchWithTrace(t *testing.T) {
	dir := setupCLI(t)
	outDir := filepath.Join(t.TempDir(), "codes")
	users := filepath.Join(t.TempDir(), "users.txt")

	var names []string
	for i := 0; i < 16; i++ {
		names = append(names, "user"+strings.Repeat("x", i))
	}
	require.NoError(t, os.WriteFile(users, []byte(strings.Join(names, "\n")), 0600))

	_, stderr, err := runCLIOutput(t, "admin", "generate-batch", users,
		"--data-dir", dir, "--out-dir", outDir, "--trace", "--workers", "8")
	require.NoError(t, err)

	for _, name := range names {
		assert.FileExists(t, filepath.Join(outDir, "admin_code_"+name+".json"))
	}
	assert.Equal(t, 16*8, strings.Count(stderr, "encrypt stage"))
	assert.NotContains(t, stderr, "decrypt stage")
}
