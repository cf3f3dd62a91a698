// Package storage provides shared types for entity storage.
//
// Concrete implementations live in the memory and sqlite sub-packages. This
// package holds the interface and value types referenced by both the
// implementations and their consumers (the import engine, cmd/daybook).
package storage

import (
	"context"
	"errors"

	"github.com/daybookhq/daybook/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Strategy tells the store how to treat a collision it encounters on write.
// The import engine resolves the collisions it detects before commit; the
// strategy covers collisions the store discovers independently (an entity
// written by someone else between detection and commit).
type Strategy string

// Write strategies.
const (
	StrategySkipExisting Strategy = "skip_existing"
	StrategyReplace      Strategy = "replace"
	StrategyMerge        Strategy = "merge"
)

// IsValid checks the strategy value.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategySkipExisting, StrategyReplace, StrategyMerge:
		return true
	}
	return false
}

// BatchResult reports what a PutBatch call actually did.
type BatchResult struct {
	Created  int
	Replaced int
	Merged   int
	Skipped  int
}

// Add accumulates another batch result.
func (r *BatchResult) Add(other BatchResult) {
	r.Created += other.Created
	r.Replaced += other.Replaced
	r.Merged += other.Merged
	r.Skipped += other.Skipped
}

// Total counts the entities the batch touched, including skips.
func (r *BatchResult) Total() int {
	return r.Created + r.Replaced + r.Merged + r.Skipped
}

// Store is the persistence collaborator of the import engine. Consumers
// depend on this interface rather than a concrete type so the memory store
// can stand in during tests.
type Store interface {
	// ExistsByID reports whether an entity of type t with the given ID is
	// currently persisted.
	ExistsByID(ctx context.Context, t types.EntityType, id string) (bool, error)
	// Get returns the persisted entity, or ErrNotFound.
	Get(ctx context.Context, t types.EntityType, id string) (types.Entity, error)
	// List returns every persisted entity of type t.
	List(ctx context.Context, t types.EntityType) ([]types.Entity, error)
	// PutBatch persists the given entities of type t atomically, applying
	// the strategy to any ID collision it encounters.
	PutBatch(ctx context.Context, t types.EntityType, entities []types.Entity, strategy Strategy) (BatchResult, error)
	// Close releases the underlying resources.
	Close() error
}
