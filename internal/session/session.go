// Package session tracks which candidate entities are still part of an
// import and which have been skipped by conflict resolution. Skipping is
// bookkeeping only; skipped entities are never silently dropped from the
// import report.
package session

import (
	"sort"

	"github.com/daybookhq/daybook/internal/types"
)

// Selection is the mutable working set of one import session.
type Selection struct {
	selected map[types.EntityType][]types.Entity
	skipped  map[types.EntityType][]string
}

// New builds a selection from the validated candidate entities.
func New(entities map[types.EntityType][]types.Entity) *Selection {
	sel := &Selection{
		selected: make(map[types.EntityType][]types.Entity),
		skipped:  make(map[types.EntityType][]string),
	}
	for t, list := range entities {
		sel.selected[t] = append([]types.Entity(nil), list...)
	}
	return sel
}

// Selected returns the still-selected entities. Callers must not mutate the
// returned map.
func (s *Selection) Selected() map[types.EntityType][]types.Entity {
	return s.selected
}

// Get returns the still-selected entity with the given type and ID.
func (s *Selection) Get(t types.EntityType, id string) (types.Entity, bool) {
	for _, e := range s.selected[t] {
		if e.EntityID() == id {
			return e, true
		}
	}
	return nil, false
}

// Contains reports whether the entity is still selected.
func (s *Selection) Contains(t types.EntityType, id string) bool {
	_, ok := s.Get(t, id)
	return ok
}

// Skip removes the entity from the selection and records it as skipped.
// Skipping an entity that was already removed is a no-op.
func (s *Selection) Skip(t types.EntityType, id string) bool {
	list := s.selected[t]
	for i, e := range list {
		if e.EntityID() != id {
			continue
		}
		s.selected[t] = append(list[:i:i], list[i+1:]...)
		if len(s.selected[t]) == 0 {
			delete(s.selected, t)
		}
		s.skipped[t] = append(s.skipped[t], id)
		return true
	}
	return false
}

// Skipped returns the skipped IDs per type, each list sorted.
func (s *Selection) Skipped() map[types.EntityType][]string {
	out := make(map[types.EntityType][]string, len(s.skipped))
	for t, ids := range s.skipped {
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		out[t] = sorted
	}
	return out
}

// TotalSelected counts the entities still in the selection.
func (s *Selection) TotalSelected() int {
	n := 0
	for _, list := range s.selected {
		n += len(list)
	}
	return n
}

// TotalSkipped counts the entities removed by skip resolutions.
func (s *Selection) TotalSkipped() int {
	n := 0
	for _, ids := range s.skipped {
		n += len(ids)
	}
	return n
}
