// Package idmap assigns destination identifiers to imported entities and
// rewrites cross-entity references to match. The mapping is injective: no
// two source IDs ever land on the same destination ID.
package idmap

import (
	"context"
	"fmt"

	"github.com/daybookhq/daybook/internal/idgen"
	"github.com/daybookhq/daybook/internal/types"
)

// ExistsFunc reports whether an ID is already taken in the live store.
type ExistsFunc func(ctx context.Context, t types.EntityType, id string) (bool, error)

// Mapping records the old-to-new ID assignments of one import. Entities that
// keep their source ID appear in Preserved, not in OldToNew.
type Mapping struct {
	OldToNew  map[string]string
	NewToOld  map[string]string
	Preserved int
	Generated int
}

func newMapping() *Mapping {
	return &Mapping{
		OldToNew: make(map[string]string),
		NewToOld: make(map[string]string),
	}
}

// Assign records old -> new, rejecting any assignment that would break
// injectivity.
func (m *Mapping) Assign(old, new string) error {
	if prev, ok := m.OldToNew[old]; ok && prev != new {
		return fmt.Errorf("id %q already mapped to %q", old, prev)
	}
	if prev, ok := m.NewToOld[new]; ok && prev != old {
		return fmt.Errorf("ids %q and %q both map to %q", prev, old, new)
	}
	m.OldToNew[old] = new
	m.NewToOld[new] = old
	m.Generated++
	return nil
}

// Resolve returns the destination ID for a source ID.
func (m *Mapping) Resolve(old string) string {
	if n, ok := m.OldToNew[old]; ok {
		return n
	}
	return old
}

const generateAttempts = 5

// Build computes the ID assignment for the selected entities. With
// preserveIDs set, entities keep their source IDs except those forced onto a
// fresh ID by a create_new resolution (their old IDs stay listed in
// createNew). Without it, every entity gets a freshly generated ID. Generated
// IDs are checked against the batch and the live store before acceptance.
func Build(ctx context.Context, selected map[types.EntityType][]types.Entity, preserveIDs bool, createNew map[string]bool, exists ExistsFunc) (*Mapping, error) {
	m := newMapping()

	// Reserve every preserved source ID first so generation can never
	// collide with one.
	taken := make(map[string]bool)
	for _, list := range selected {
		for _, e := range list {
			if preserveIDs && !createNew[e.EntityID()] {
				taken[e.EntityID()] = true
			}
		}
	}

	for _, t := range types.AllEntityTypes() {
		for _, e := range selected[t] {
			old := e.EntityID()
			if preserveIDs && !createNew[old] {
				m.Preserved++
				continue
			}
			id, err := generate(ctx, t, taken, exists)
			if err != nil {
				return nil, err
			}
			if err := m.Assign(old, id); err != nil {
				return nil, err
			}
			taken[id] = true
		}
	}
	return m, nil
}

func generate(ctx context.Context, t types.EntityType, taken map[string]bool, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < generateAttempts; attempt++ {
		id := idgen.NewID(t)
		if taken[id] {
			continue
		}
		if exists != nil {
			stored, err := exists(ctx, t, id)
			if err != nil {
				return "", fmt.Errorf("checking generated id %s/%s: %w", t, id, err)
			}
			if stored {
				continue
			}
		}
		return id, nil
	}
	return "", fmt.Errorf("could not generate a free %s id after %d attempts", t, generateAttempts)
}

// Apply stamps each entity with its destination ID and rewrites references.
// A reference is rewritten to its mapped ID when its target was remapped,
// kept when the target survives in the batch or the live store, and cleared
// otherwise. With updateReferences off, only the ID stamping happens.
func Apply(ctx context.Context, selected map[types.EntityType][]types.Entity, m *Mapping, updateReferences bool, exists ExistsFunc) error {
	inBatch := make(map[string]bool)
	for _, list := range selected {
		for _, e := range list {
			inBatch[e.EntityID()] = true
		}
	}

	var rewriteErr error
	rewrite := func(target types.EntityType, id string) (string, bool) {
		if n, ok := m.OldToNew[id]; ok {
			return n, true
		}
		if inBatch[id] {
			return id, true
		}
		if exists != nil {
			stored, err := exists(ctx, target, id)
			if err != nil && rewriteErr == nil {
				rewriteErr = err
			}
			if stored {
				return id, true
			}
		}
		return "", false
	}

	for _, list := range selected {
		for _, e := range list {
			e.SetEntityID(m.Resolve(e.EntityID()))
			if updateReferences {
				e.RewriteReferences(rewrite)
			}
		}
	}
	return rewriteErr
}
