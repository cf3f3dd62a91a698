package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/daybookhq/daybook/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate an export document without importing it",
	Long: `Validate an export document without importing it.

Checks the document shape, the schema version, and every entity's
required fields. Entities with errors are reported individually;
warnings do not fail validation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading document: %w", err)
			}
		} else {
			if term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("no input: pass a file or pipe a document to stdin")
			}
			raw, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parsing document: %w", err)
		}
		res := validation.ValidateDocument(doc)

		if jsonOutput {
			outputJSON(map[string]any{
				"isValid": res.IsValid,
				"issues":  res.Issues,
			})
		} else {
			survived := 0
			for _, list := range res.Entities {
				survived += len(list)
			}
			for _, is := range res.Issues {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", is.Severity, is.Message)
			}
			fmt.Printf("%d entities importable, %d issues\n", survived, len(res.Issues))
		}

		if !res.IsValid {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
