package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/term"

	"github.com/daybookhq/daybook/internal/configfile"
	"github.com/daybookhq/daybook/internal/conflict"
	"github.com/daybookhq/daybook/internal/export"
	"github.com/daybookhq/daybook/internal/importer"
	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/telemetry"
	"github.com/daybookhq/daybook/internal/validation"
)

var (
	importStrategy     string
	importPreserveIDs  bool
	importUpdateRefs   bool
	importBackup       bool
	importBackupDir    string
	importDryRun       bool
	importResolve      string
	importSkipManifest bool
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import an export document into the store",
	Long: `Import an export document into the store.

Reads from the given file, or from stdin when no file is supplied and
stdin is piped. Conflicts with existing data must be resolved: pass
--resolve to apply one resolution to every conflict, or rerun after
inspecting the listed conflicts.

Resolutions:
  skip        leave the existing entity alone, drop the incoming one
  replace     overwrite the existing entity
  merge       field-merge the incoming entity into the existing one
  create-new  give the incoming entity a fresh ID and rewrite references`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, path, err := readImportInput(args)
		if err != nil {
			return err
		}
		if path != "" && !importSkipManifest {
			if found, err := export.VerifyManifest(path); found && err != nil {
				return fmt.Errorf("refusing to import: %w (pass --skip-manifest to override)", err)
			}
		}

		opts, err := buildImportOptions(cmd)
		if err != nil {
			return err
		}

		sess, err := importer.Begin(ctx, store, raw, opts)
		if errors.Is(err, importer.ErrInvalidDocument) {
			reportValidationFailure(sess)
			os.Exit(1)
		}
		if err != nil {
			return err
		}

		if importResolve != "" {
			r := conflict.Resolution(normalizeResolution(importResolve))
			if err := sess.ResolveAll(ctx, r); err != nil {
				return err
			}
		}

		if pending := sess.Pending(); len(pending) > 0 {
			reportPendingConflicts(pending)
			os.Exit(1)
		}

		res, err := sess.Commit(ctx)
		if err != nil {
			return err
		}
		recordImportMetrics(cmd, res)
		reportImportResult(res)
		return nil
	},
}

func recordImportMetrics(cmd *cobra.Command, res *importer.Result) {
	meter := telemetry.Meter("")
	entities, err := meter.Int64Counter("daybook.import.entities",
		metric.WithDescription("Entities written by import commits"))
	if err != nil {
		return
	}
	duration, err := meter.Float64Histogram("daybook.import.duration",
		metric.WithDescription("Import commit duration"), metric.WithUnit("s"))
	if err != nil {
		return
	}
	ctx := cmd.Context()
	entities.Add(ctx, int64(res.Created), metric.WithAttributes(attribute.String("outcome", "created")))
	entities.Add(ctx, int64(res.Replaced), metric.WithAttributes(attribute.String("outcome", "replaced")))
	entities.Add(ctx, int64(res.Merged), metric.WithAttributes(attribute.String("outcome", "merged")))
	entities.Add(ctx, int64(res.Skipped), metric.WithAttributes(attribute.String("outcome", "skipped")))
	duration.Record(ctx, res.Duration.Seconds(), metric.WithAttributes(attribute.Bool("dry_run", res.DryRun)))
}

func readImportInput(args []string) ([]byte, string, error) {
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("reading import file: %w", err)
		}
		return raw, args[0], nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, "", fmt.Errorf("no input: pass a file or pipe a document to stdin")
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, "", fmt.Errorf("reading stdin: %w", err)
	}
	return raw, "", nil
}

// buildImportOptions layers flag values over workspace config.yaml defaults
// and DAYBOOK_* environment overrides.
func buildImportOptions(cmd *cobra.Command) (importer.Options, error) {
	opts := importer.DefaultOptions()

	if workspaceDir != "" {
		local := configfile.LoadLocalConfig(workspaceDir)
		if local.Strategy != "" {
			opts.Strategy = storage.Strategy(normalizeStrategy(local.Strategy))
		}
		if local.PreserveIDs != nil {
			opts.PreserveIDs = *local.PreserveIDs
		}
		if local.UpdateReferences != nil {
			opts.UpdateReferences = *local.UpdateReferences
		}
		if local.CreateBackup != nil {
			opts.CreateBackup = *local.CreateBackup
		}
		if local.DefaultResolution != "" {
			opts.DefaultResolution = conflict.Resolution(normalizeResolution(local.DefaultResolution))
		}
		opts.BackupDir = workspaceCfg.BackupPath(workspaceDir)
	}
	if env := viper.GetString("strategy"); env != "" {
		opts.Strategy = storage.Strategy(normalizeStrategy(env))
	}

	if cmd.Flags().Changed("strategy") {
		opts.Strategy = storage.Strategy(normalizeStrategy(importStrategy))
	}
	if cmd.Flags().Changed("preserve-ids") {
		opts.PreserveIDs = importPreserveIDs
	}
	if cmd.Flags().Changed("update-references") {
		opts.UpdateReferences = importUpdateRefs
	}
	if cmd.Flags().Changed("backup") {
		opts.CreateBackup = importBackup
	}
	if importBackupDir != "" {
		opts.BackupDir = importBackupDir
	}
	opts.DryRun = importDryRun

	if !opts.Strategy.IsValid() {
		return opts, fmt.Errorf("invalid strategy %q (skip, replace, or merge)", opts.Strategy)
	}
	return opts, nil
}

// normalizeStrategy accepts the short CLI spellings.
func normalizeStrategy(s string) string {
	if s == "skip" {
		return string(storage.StrategySkipExisting)
	}
	return s
}

// normalizeResolution accepts the hyphenated CLI spelling of create-new.
func normalizeResolution(s string) string {
	if s == "create-new" {
		return string(conflict.ResolutionCreateNew)
	}
	return s
}

func reportValidationFailure(sess *importer.Session) {
	if sess == nil {
		fmt.Fprintln(os.Stderr, "Error: document failed validation")
		return
	}
	res := sess.Validation()
	if jsonOutput {
		outputJSON(map[string]any{"isValid": false, "issues": res.Issues})
		return
	}
	fmt.Fprintln(os.Stderr, "Error: document failed validation")
	for _, is := range res.Issues {
		fmt.Fprintf(os.Stderr, "  [%s] %s\n", is.Severity, is.Message)
	}
}

func reportPendingConflicts(pending []*conflict.Conflict) {
	if jsonOutput {
		outputJSON(map[string]any{"conflicts": pending})
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %d unresolved conflicts; rerun with --resolve <resolution>\n", len(pending))
	for _, c := range pending {
		fmt.Fprintf(os.Stderr, "  %s  %s\n", c.ID, c.Message)
	}
}

func reportImportResult(res *importer.Result) {
	if jsonOutput {
		outputJSON(res)
		return
	}
	verb := "Imported"
	if res.DryRun {
		verb = "Would import"
	}
	fmt.Printf("%s %d entities (%d created, %d replaced, %d merged, %d skipped)\n",
		verb, res.Created+res.Replaced+res.Merged, res.Created, res.Replaced, res.Merged, res.Skipped)
	if len(res.Remapped) > 0 {
		fmt.Printf("Remapped %d identifiers\n", len(res.Remapped))
	}
	if res.BackupPath != "" {
		fmt.Printf("Backup written to %s\n", res.BackupPath)
	}
	for _, is := range res.Issues {
		fmt.Fprintf(os.Stderr, "%s: %s\n", issuePrefix(is.Severity), is.Message)
	}
}

// issuePrefix maps an issue severity to its stderr prefix. Error-severity
// issues mark quarantined entities, not mere advisories.
func issuePrefix(s validation.Severity) string {
	if s == validation.SeverityError {
		return "Error"
	}
	return "Warning"
}

func init() {
	importCmd.Flags().StringVar(&importStrategy, "strategy", "skip", "collision strategy: skip, replace, or merge")
	importCmd.Flags().BoolVar(&importPreserveIDs, "preserve-ids", true, "keep source identifiers")
	importCmd.Flags().BoolVar(&importUpdateRefs, "update-references", true, "rewrite references to remapped identifiers")
	importCmd.Flags().BoolVar(&importBackup, "backup", false, "snapshot the store before committing")
	importCmd.Flags().StringVar(&importBackupDir, "backup-dir", "", "directory for pre-import backups")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "report what would happen without writing")
	importCmd.Flags().StringVar(&importResolve, "resolve", "", "apply one resolution to every conflict: skip, replace, merge, create-new, defer")
	importCmd.Flags().BoolVar(&importSkipManifest, "skip-manifest", false, "skip manifest checksum verification")
	rootCmd.AddCommand(importCmd)
}
