package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daybookhq/daybook/internal/configfile"
	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/storage/sqlite"
	"github.com/daybookhq/daybook/internal/telemetry"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	dbPath     string
	jsonOutput bool

	workspaceDir string
	workspaceCfg *configfile.Config
	store        storage.Store

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// commandsWithoutStore run before a workspace exists or never touch it.
var commandsWithoutStore = map[string]bool{
	"init":     true,
	"validate": true,
	"help":     true,
	"version":  true,
}

var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "Import, export, and reconcile daybook data",
	Long: `daybook moves personal productivity data in and out of a local store.

Imports are sessions: the document is validated, cross-entity references
are checked, and collisions with existing data surface as conflicts that
must be resolved (skip, replace, merge, create-new) before anything is
written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := telemetry.Init(rootCtx, "daybook", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry disabled: %v\n", err)
		}
		if commandsWithoutStore[cmd.Name()] {
			return nil
		}
		return openStore(rootCtx)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if store != nil {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: closing store: %v\n", err)
			}
			store = nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

// openStore locates the workspace and opens the database. The --db flag and
// DAYBOOK_DB env var bypass workspace discovery.
func openStore(ctx context.Context) error {
	path := dbPath
	if path == "" {
		path = viper.GetString("db")
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		dir, ok := configfile.FindWorkspace(cwd)
		if !ok {
			return fmt.Errorf("no %s workspace found; run 'daybook init' first or pass --db", configfile.DirName)
		}
		cfg, err := configfile.Load(dir)
		if err != nil {
			return err
		}
		if cfg == nil {
			cfg = configfile.DefaultConfig()
		}
		workspaceDir = dir
		workspaceCfg = cfg
		path = cfg.DatabasePath(dir)
	}

	s, err := sqlite.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	store = s
	return nil
}

func outputJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	viper.SetEnvPrefix("DAYBOOK")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the database file (overrides workspace discovery)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.Version = Version

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
