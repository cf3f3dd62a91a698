// Package daybook provides a minimal public API for embedding the import and
// export engine in other Go programs.
//
// Most callers should use the daybook CLI. This package exports only the
// essential types and functions needed to open a store, run an import
// session, and snapshot an export programmatically.
package daybook

import (
	"context"

	"github.com/daybookhq/daybook/internal/configfile"
	"github.com/daybookhq/daybook/internal/export"
	"github.com/daybookhq/daybook/internal/importer"
	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/storage/sqlite"
	"github.com/daybookhq/daybook/internal/types"
)

// Core types for working with entities
type (
	Entity     = types.Entity
	EntityType = types.EntityType
	Goal       = types.Goal
	Project    = types.Project
	Task       = types.Task
	Thought    = types.Thought
	Mood       = types.Mood
	Person     = types.Person

	ExportedData = types.ExportedData
)

// EntityType constants
const (
	TypeGoal         = types.TypeGoal
	TypeProject      = types.TypeProject
	TypeTask         = types.TypeTask
	TypeThought      = types.TypeThought
	TypeMood         = types.TypeMood
	TypeFocusSession = types.TypeFocusSession
	TypePerson       = types.TypePerson
	TypePortfolio    = types.TypePortfolio
	TypeSpending     = types.TypeSpending
)

// Collision strategy constants
const (
	StrategySkipExisting = storage.StrategySkipExisting
	StrategyReplace      = storage.StrategyReplace
	StrategyMerge        = storage.StrategyMerge
)

// Store provides the minimal interface for programmatic access.
type Store = storage.Store

// ImportOptions configures an import session.
type ImportOptions = importer.Options

// ImportResult is the report handed back by a committed import.
type ImportResult = importer.Result

// ImportSession is an in-flight import with pending conflicts.
type ImportSession = importer.Session

// Open opens a daybook SQLite database for programmatic access. Pass
// ":memory:" for an ephemeral store.
func Open(ctx context.Context, dbPath string) (Store, error) {
	return sqlite.Open(ctx, dbPath)
}

// OpenWorkspace opens the database configured in a .daybook directory.
func OpenWorkspace(ctx context.Context, daybookDir string) (Store, error) {
	cfg, err := configfile.Load(daybookDir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = configfile.DefaultConfig()
	}
	return sqlite.Open(ctx, cfg.DatabasePath(daybookDir))
}

// FindWorkspace walks up from dir looking for a .daybook directory.
func FindWorkspace(dir string) (string, bool) {
	return configfile.FindWorkspace(dir)
}

// BeginImport parses, validates, and conflict-checks a raw export document.
func BeginImport(ctx context.Context, store Store, raw []byte, opts ImportOptions) (*ImportSession, error) {
	return importer.Begin(ctx, store, raw, opts)
}

// DefaultImportOptions returns the option set the CLI uses when nothing is
// specified: keep IDs, rewrite references, skip on collision.
func DefaultImportOptions() ImportOptions {
	return importer.DefaultOptions()
}

// Export snapshots every entity in the store into an export document.
func Export(ctx context.Context, store Store, userID string) (*ExportedData, error) {
	return export.NewProducer(store).Snapshot(ctx, export.Options{UserID: userID})
}
