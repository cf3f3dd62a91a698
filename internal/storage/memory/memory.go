// Package memory implements an in-memory entity store. It backs tests and
// serves as the reference semantics for the sqlite implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/daybookhq/daybook/internal/mergefield"
	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/types"
)

// Store is a thread-safe in-memory implementation of storage.Store.
type Store struct {
	mu       sync.RWMutex
	entities map[types.EntityType]map[string]types.Entity
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		entities: make(map[types.EntityType]map[string]types.Entity),
	}
}

// Seed inserts entities directly, bypassing strategy handling. Test helper.
func (s *Store) Seed(entities ...types.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		_ = s.putLocked(e)
	}
}

func (s *Store) putLocked(e types.Entity) error {
	t := e.EntityType()
	if s.entities[t] == nil {
		s.entities[t] = make(map[string]types.Entity)
	}
	// Copy on write so callers cannot mutate stored state through
	// retained pointers.
	clone, err := types.CloneEntity(e)
	if err != nil {
		return err
	}
	s.entities[t][e.EntityID()] = clone
	return nil
}

// ExistsByID implements storage.Store.
func (s *Store) ExistsByID(_ context.Context, t types.EntityType, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[t][id]
	return ok, nil
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, t types.EntityType, id string) (types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[t][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", t, id, storage.ErrNotFound)
	}
	return types.CloneEntity(e)
}

// List implements storage.Store. Results come back in ID order.
func (s *Store) List(_ context.Context, t types.EntityType) ([]types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entities[t]))
	for id := range s.entities[t] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]types.Entity, 0, len(ids))
	for _, id := range ids {
		clone, err := types.CloneEntity(s.entities[t][id])
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}

// PutBatch implements storage.Store.
func (s *Store) PutBatch(_ context.Context, t types.EntityType, entities []types.Entity, strategy storage.Strategy) (storage.BatchResult, error) {
	var res storage.BatchResult
	if !strategy.IsValid() {
		return res, fmt.Errorf("invalid write strategy %q", strategy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		if e.EntityType() != t {
			return res, fmt.Errorf("batch for %s contains a %s entity", t, e.EntityType())
		}
		existing, collides := s.entities[t][e.EntityID()]
		if !collides {
			if err := s.putLocked(e); err != nil {
				return res, err
			}
			res.Created++
			continue
		}
		switch strategy {
		case storage.StrategySkipExisting:
			res.Skipped++
		case storage.StrategyReplace:
			if err := s.putLocked(e); err != nil {
				return res, err
			}
			res.Replaced++
		case storage.StrategyMerge:
			merged, err := mergefield.Merge(existing, e)
			if err != nil {
				return res, fmt.Errorf("merging %s/%s: %w", t, e.EntityID(), err)
			}
			if err := s.putLocked(merged); err != nil {
				return res, err
			}
			res.Merged++
		}
	}
	return res, nil
}

// Close implements storage.Store.
func (s *Store) Close() error { return nil }
