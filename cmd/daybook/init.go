package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/configfile"
)

var initUserID string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a daybook workspace in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir := filepath.Join(cwd, configfile.DirName)
		if existing, err := configfile.Load(dir); err != nil {
			return err
		} else if existing != nil {
			return fmt.Errorf("workspace already initialized at %s", dir)
		}

		cfg := configfile.DefaultConfig()
		cfg.UserID = initUserID
		if err := cfg.Save(dir); err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.BackupPath(dir), 0o750); err != nil {
			return fmt.Errorf("creating backup directory: %w", err)
		}

		if jsonOutput {
			outputJSON(map[string]string{
				"workspace": dir,
				"database":  cfg.DatabasePath(dir),
			})
		} else {
			fmt.Printf("Initialized daybook workspace in %s\n", dir)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initUserID, "user", "", "user identifier stamped into exports")
	rootCmd.AddCommand(initCmd)
}
