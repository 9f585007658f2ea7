package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scrapeguard/pkg/admincode"
	"scrapeguard/pkg/audit"
	"scrapeguard/pkg/config"
	errs "scrapeguard/pkg/errors"
	"scrapeguard/pkg/keystore"
	"scrapeguard/pkg/logger"
	"scrapeguard/pkg/pipeline"
	"scrapeguard/pkg/storage"
	"scrapeguard/pkg/ui"
)

// errDenied makes the process exit non-zero after a reported denial
var errDenied = errors.New("access denied")

var (
	adminOut       string
	adminFile      string
	adminTrace     bool
	adminPurge     bool
	adminAudit     bool
	adminAuditSize int
)

// adminCmd represents the admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Generate and verify admin codes",
	Long: `Generate and verify admin codes.

An admin code is bound to one username. Generating a new code overwrites the
saved one; verifying decrypts the saved code and compares it with the
username given on the command line.`,
}

var adminGenerateCmd = &cobra.Command{
	Use:   "generate <username>",
	Short: "Generate and save an admin code",
	Example: `  scrapeguard admin generate alice
  scrapeguard admin generate alice --out /srv/client/admin_codes.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAdminGenerate,
}

var adminVerifyCmd = &cobra.Command{
	Use:   "verify <username>",
	Short: "Verify the saved admin code for a username",
	Long: `Verify the saved admin code for a username.

With purge on failure enabled (--purge or admin.purge_on_failure) a denied
check removes the admin code and key files from the data directory.`,
	Example: `  scrapeguard admin verify alice
  scrapeguard admin verify alice --file ./backup/admin_codes.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAdminVerify,
}

var adminAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recorded verification outcomes",
	Args:  cobra.NoArgs,
	RunE:  runAdminAudit,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminGenerateCmd)
	adminCmd.AddCommand(adminVerifyCmd)
	adminCmd.AddCommand(adminAuditCmd)

	adminCmd.PersistentFlags().BoolVar(&adminTrace, "trace", false, "show each cipher stage as it runs")
	adminGenerateCmd.Flags().StringVarP(&adminOut, "out", "o", "", "write the bundle to this path instead of the data directory")
	adminVerifyCmd.Flags().StringVarP(&adminFile, "file", "f", "", "verify the bundle at this path instead of the saved one")
	adminVerifyCmd.Flags().BoolVar(&adminPurge, "purge", false, "remove client files when verification fails")
	adminVerifyCmd.Flags().BoolVar(&adminAudit, "audit", false, "record the outcome in the audit log")
	adminAuditCmd.Flags().IntVarP(&adminAuditSize, "limit", "n", 20, "number of entries to show (0 for all)")
}

// adminEnv is everything an admin command needs, built from config
type adminEnv struct {
	cfg         *config.Config
	manager     *admincode.Manager
	keySource   string
	fingerprint string
	auditLog    *audit.Log
}

// Close releases the audit store, if open
func (e *adminEnv) Close() {
	if e.auditLog != nil {
		if err := e.auditLog.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close audit log")
		}
	}
}

// gate builds the verification gate with the configured purge and audit
// policies.
func (e *adminEnv) gate() *admincode.Gate {
	var opts []admincode.GateOption
	if e.cfg.Admin.PurgeOnFailure {
		opts = append(opts, admincode.WithPurge(e.cfg.Admin.KeysFile))
	}
	if e.auditLog != nil {
		opts = append(opts, admincode.WithRecorder(e.auditLog))
	}
	return admincode.NewGate(e.manager, opts...)
}

// traceHook prints one status line per cipher stage. Batch workers call it
// concurrently, so all tracker state goes through the tracker's lock.
func traceHook(tracker *ui.StageTracker) func(pipeline.StageEvent) {
	return func(ev pipeline.StageEvent) {
		first := ev.Stage.Number == 1
		if ev.Direction == pipeline.DirectionDecrypt {
			first = ev.Stage.Number == pipeline.NumStages
		}
		label := fmt.Sprintf("%s stage %d (%s, %s)", ev.Direction, ev.Stage.Number, ev.Stage.Algorithm, ev.Stage.Key)
		ui.PrintStage(tracker.Step(string(ev.Direction), label, first))
	}
}

// openAdmin resolves keys and wires pipeline, storage and the admin code
// manager together.
func openAdmin(cfg *config.Config) (*adminEnv, error) {
	keys, err := keystore.NewManagerFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	ks, source, err := keys.Resolve()
	if errors.Is(err, keystore.ErrKeysNotFound) {
		return nil, fmt.Errorf("no pipeline keys found, run 'scrapeguard keys init' first")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline keys: %w", err)
	}

	var opts []pipeline.Option
	if adminTrace {
		opts = append(opts, pipeline.WithStageHook(traceHook(ui.NewStageTracker(pipeline.NumStages))))
	}

	p, err := pipeline.New(ks, opts...)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewManager(cfg.Admin.DataDir)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger()
	manager, err := admincode.NewManager(p, store,
		admincode.WithLogger(log),
		admincode.WithCodeFile(cfg.Admin.CodeFile),
	)
	if err != nil {
		return nil, err
	}

	env := &adminEnv{
		cfg:         cfg,
		manager:     manager,
		keySource:   source,
		fingerprint: ks.Fingerprint(),
	}

	if cfg.Audit.Enabled {
		env.auditLog, err = audit.Open(cfg.AdminPath(cfg.Audit.Path), audit.WithLogger(log))
		if err != nil {
			return nil, err
		}
	}

	return env, nil
}

func runAdminGenerate(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	env, err := openAdmin(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	bundle, err := env.manager.Generate(username)
	if err != nil {
		return fmt.Errorf("failed to generate admin code: %w", err)
	}

	path := env.manager.CodeFile()
	if adminOut != "" {
		path = adminOut
		err = env.manager.Persist(bundle, path)
	} else {
		err = env.manager.Save(bundle)
	}
	if err != nil {
		return fmt.Errorf("failed to save admin code: %w", err)
	}

	ui.PrintSuccess("Admin code generated and saved")
	ui.PrintInfo("Username", username)
	ui.PrintInfo("File", path)
	ui.PrintInfo("Keys", fmt.Sprintf("%s (%s)", env.fingerprint, env.keySource))
	return nil
}

func runAdminVerify(cmd *cobra.Command, args []string) error {
	username := args[0]

	extra := map[string]interface{}{}
	if cmd.Flags().Changed("purge") {
		extra["purge-on-failure"] = adminPurge
	}
	if cmd.Flags().Changed("audit") {
		extra["audit"] = adminAudit
	}

	cfg, err := loadConfig(cmd, extra)
	if err != nil {
		return err
	}
	env, err := openAdmin(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	var res admincode.Verification
	if adminFile != "" {
		bundle, err := env.manager.LoadFrom(adminFile)
		if err != nil {
			res = env.manager.Verifier().Deny(username, err)
		} else {
			res = env.manager.Verifier().Run(bundle, username)
		}
	} else {
		res = env.gate().Check(username)
	}

	switch {
	case res.Granted():
		ui.PrintSuccess("Admin code is valid.")
		return nil
	case errs.IsType(res.Cause, errs.ErrorTypeNotFound):
		ui.PrintWarning("No admin code found.")
	default:
		ui.PrintError("Admin code is invalid.")
	}
	return errDenied
}

func runAdminAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	log, err := audit.Open(cfg.AdminPath(cfg.Audit.Path), audit.WithLogger(logger.GetLogger()))
	if err != nil {
		return err
	}
	defer log.Close()

	entries, err := log.List(adminAuditSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.PrintInfo("Audit log", "no entries recorded")
		return nil
	}

	ui.PrintHighlight("Verification Audit Log")
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tUSERNAME\tSTATE\tDENIED AT\tREASON\tPURGED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			e.Time.Local().Format("2006-01-02 15:04:05"),
			e.Username, e.State, e.DeniedAt, e.Reason, len(e.Purged))
	}
	return w.Flush()
}
