package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scrapeguard/internal/batch"
	"scrapeguard/pkg/ratelimit"
	"scrapeguard/pkg/storage"
	"scrapeguard/pkg/ui"
)

var (
	batchOutDir    string
	batchWorkers   int
	batchOverwrite bool
	batchRate      int
)

var adminBatchCmd = &cobra.Command{
	Use:   "generate-batch <users-file>",
	Short: "Issue admin codes for every username in a file",
	Long: `Issue admin codes for every username in a file.

The file lists one username per line. Blank lines and lines starting with #
are ignored. Each code is written to admin_code_<username>.json in the output
directory. Existing files are kept unless --overwrite is given.`,
	Example: `  scrapeguard admin generate-batch users.txt --out-dir ./codes --workers 4`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAdminBatch,
}

func init() {
	adminCmd.AddCommand(adminBatchCmd)

	adminBatchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for the bundle files (default: data directory)")
	adminBatchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 4, "number of concurrent workers")
	adminBatchCmd.Flags().BoolVar(&batchOverwrite, "overwrite", false, "replace existing bundle files")
	adminBatchCmd.Flags().IntVar(&batchRate, "rate", 0, "maximum codes issued per second (0 for unlimited)")
}

// readUsernames returns the usernames listed in path, in file order
func readUsernames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	var names []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	return names, nil
}

func runAdminBatch(cmd *cobra.Command, args []string) error {
	usernames, err := readUsernames(args[0])
	if err != nil {
		return err
	}
	if len(usernames) == 0 {
		ui.PrintWarning("No usernames found in " + args[0])
		return nil
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	env, err := openAdmin(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	store := env.manager.Store()
	if batchOutDir != "" {
		if store, err = storage.NewManager(batchOutDir); err != nil {
			return err
		}
	}

	var limiter ratelimit.Limiter
	if batchRate > 0 {
		limiter = ratelimit.NewTokenBucket(batchRate, time.Second)
	}

	pool := batch.NewWorkerPool(batchWorkers, env.manager, store, limiter, nil)
	pool.SetOverwrite(batchOverwrite)

	jobs := make([]batch.Job, len(usernames))
	for i, name := range usernames {
		jobs[i] = batch.Job{Username: name, File: batch.JobFile(name)}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results := batch.Run(ctx, pool, jobs)

	var issued, skipped, failed int
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
			ui.PrintError(fmt.Sprintf("%s: %v", r.Job.Username, r.Error))
		case r.Skipped:
			skipped++
		default:
			issued++
		}
	}
	abandoned := len(jobs) - len(results)

	ui.PrintSuccess(fmt.Sprintf("Issued %d admin codes", issued))
	ui.PrintInfo("Directory", store.Dir())
	if skipped > 0 {
		ui.PrintInfo("Skipped", fmt.Sprintf("%d already issued", skipped))
	}
	if abandoned > 0 {
		ui.PrintWarning(fmt.Sprintf("%d jobs abandoned", abandoned))
	}
	if failed > 0 || abandoned > 0 {
		return fmt.Errorf("%d of %d admin codes were not issued", failed+abandoned, len(jobs))
	}
	return nil
}
