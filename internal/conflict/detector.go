package conflict

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/daybookhq/daybook/internal/types"
)

// StoreReader is the read-only query surface the detector needs from the
// live store.
type StoreReader interface {
	ExistsByID(ctx context.Context, t types.EntityType, id string) (bool, error)
	Get(ctx context.Context, t types.EntityType, id string) (types.Entity, error)
}

// Detector finds duplicate identifiers and references that would dangle.
// It caches store lookups so fixpoint re-detection after skip resolutions
// does not re-query the store for IDs it has already checked.
type Detector struct {
	store StoreReader

	mu     sync.Mutex
	exists map[lookupKey]bool
}

type lookupKey struct {
	t  types.EntityType
	id string
}

// NewDetector creates a detector over the given live store.
func NewDetector(store StoreReader) *Detector {
	return &Detector{
		store:  store,
		exists: make(map[lookupKey]bool),
	}
}

// ExistsInStore reports whether the live store holds an entity of type t
// with the given ID, consulting the cache first.
func (d *Detector) ExistsInStore(ctx context.Context, t types.EntityType, id string) (bool, error) {
	key := lookupKey{t, id}
	d.mu.Lock()
	if v, ok := d.exists[key]; ok {
		d.mu.Unlock()
		return v, nil
	}
	d.mu.Unlock()

	v, err := d.store.ExistsByID(ctx, t, id)
	if err != nil {
		return false, fmt.Errorf("live store lookup %s/%s: %w", t, id, err)
	}
	d.mu.Lock()
	d.exists[key] = v
	d.mu.Unlock()
	return v, nil
}

// Detect runs a full detection pass over the selected entities:
// duplicate IDs (in-batch and against the store), dangling references,
// an advisory version mismatch, and one data_constraint conflict per
// dependency cycle.
func (d *Detector) Detect(ctx context.Context, selected map[types.EntityType][]types.Entity, version string, cycles [][]string) ([]*Conflict, error) {
	if err := d.prefetch(ctx, selected); err != nil {
		return nil, err
	}

	inBatch := make(map[lookupKey]bool)
	for t, list := range selected {
		for _, e := range list {
			inBatch[lookupKey{t, e.EntityID()}] = true
		}
	}

	var conflicts []*Conflict
	seenIDs := make(map[lookupKey]bool)

	for _, t := range types.AllEntityTypes() {
		for _, e := range selected[t] {
			id := e.EntityID()
			key := lookupKey{t, id}

			if seenIDs[key] {
				conflicts = append(conflicts, &Conflict{
					ID:         duplicateConflictID(t, id),
					Kind:       KindDuplicateID,
					Severity:   SeverityError,
					EntityType: t,
					EntityID:   id,
					Title:      entityTitle(e),
					Message:    fmt.Sprintf("the import contains more than one %s with id %q", t, id),
				})
				continue
			}
			seenIDs[key] = true

			stored, err := d.ExistsInStore(ctx, t, id)
			if err != nil {
				return nil, err
			}
			if stored {
				existing, err := d.store.Get(ctx, t, id)
				if err != nil {
					return nil, fmt.Errorf("fetching existing %s/%s: %w", t, id, err)
				}
				conflicts = append(conflicts, &Conflict{
					ID:         duplicateConflictID(t, id),
					Kind:       KindDuplicateID,
					Severity:   SeverityError,
					EntityType: t,
					EntityID:   id,
					Title:      entityTitle(e),
					Message:    fmt.Sprintf("a %s with id %q already exists", t, id),
					Details:    &Details{Existing: existing},
				})
			}

			refConflicts, err := d.detectReferences(ctx, e, inBatch)
			if err != nil {
				return nil, err
			}
			conflicts = append(conflicts, refConflicts...)
		}
	}

	if version != "" && !types.SupportedVersions[version] {
		conflicts = append(conflicts, &Conflict{
			ID:       versionConflictID(version),
			Kind:     KindVersionMismatch,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("export version %q is not a supported version; proceeding on a best-effort basis", version),
		})
	}

	typeOf := make(map[string]types.EntityType)
	for t, list := range selected {
		for _, e := range list {
			typeOf[e.EntityID()] = t
		}
	}
	for _, members := range cycles {
		if len(members) == 0 {
			continue
		}
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		// All members of an intra-type cycle share a type.
		t := typeOf[sorted[0]]
		conflicts = append(conflicts, &Conflict{
			ID:         cycleConflictID(t, sorted),
			Kind:       KindDataConstraint,
			Severity:   SeverityError,
			EntityType: t,
			EntityID:   sorted[0],
			Message:    fmt.Sprintf("dependency cycle between %s", strings.Join(sorted, " -> ")),
			Details:    &Details{CycleIDs: sorted},
		})
	}

	return conflicts, nil
}

// DetectReferencesTo re-checks references that point at the given target
// after it was skipped. Live-store hits still satisfy the reference; only
// true danglers come back as conflicts.
func (d *Detector) DetectReferencesTo(ctx context.Context, selected map[types.EntityType][]types.Entity, targetType types.EntityType, targetID string) ([]*Conflict, error) {
	var conflicts []*Conflict
	stored, err := d.ExistsInStore(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if stored {
		return nil, nil
	}
	for t, list := range selected {
		for _, e := range list {
			for _, ref := range e.References() {
				if ref.Type != targetType || ref.ID != targetID {
					continue
				}
				conflicts = append(conflicts, &Conflict{
					ID:         referenceConflictID(t, e.EntityID(), ref.Field, ref.ID),
					Kind:       KindBrokenReference,
					Severity:   SeverityError,
					EntityType: t,
					EntityID:   e.EntityID(),
					Title:      entityTitle(e),
					Message:    fmt.Sprintf("%s %q references %s %q which is no longer part of the import", t, e.EntityID(), ref.Type, ref.ID),
					Details:    &Details{Field: ref.Field, ReferencedType: ref.Type, ReferencedID: ref.ID},
				})
			}
		}
	}
	return conflicts, nil
}

func (d *Detector) detectReferences(ctx context.Context, e types.Entity, inBatch map[lookupKey]bool) ([]*Conflict, error) {
	var conflicts []*Conflict
	for _, ref := range e.References() {
		if inBatch[lookupKey{ref.Type, ref.ID}] {
			continue
		}
		stored, err := d.ExistsInStore(ctx, ref.Type, ref.ID)
		if err != nil {
			return nil, err
		}
		if stored {
			continue
		}
		conflicts = append(conflicts, &Conflict{
			ID:         referenceConflictID(e.EntityType(), e.EntityID(), ref.Field, ref.ID),
			Kind:       KindBrokenReference,
			Severity:   SeverityError,
			EntityType: e.EntityType(),
			EntityID:   e.EntityID(),
			Title:      entityTitle(e),
			Message:    fmt.Sprintf("%s %q references %s %q which exists neither in the import nor in the store", e.EntityType(), e.EntityID(), ref.Type, ref.ID),
			Details:    &Details{Field: ref.Field, ReferencedType: ref.Type, ReferencedID: ref.ID},
		})
	}
	return conflicts, nil
}

// prefetch warms the existence cache with one goroutine per entity type.
// Store lookups are the only remote calls in detection, so this is the one
// place concurrency buys anything.
func (d *Detector) prefetch(ctx context.Context, selected map[types.EntityType][]types.Entity) error {
	wanted := make(map[types.EntityType][]string)
	add := func(t types.EntityType, id string) {
		wanted[t] = append(wanted[t], id)
	}
	for t, list := range selected {
		for _, e := range list {
			add(t, e.EntityID())
			for _, ref := range e.References() {
				add(ref.Type, ref.ID)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for t, ids := range wanted {
		g.Go(func() error {
			for _, id := range ids {
				if _, err := d.ExistsInStore(gctx, t, id); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// entityTitle extracts a human-readable label for conflict display.
func entityTitle(e types.Entity) string {
	switch v := e.(type) {
	case *types.Goal:
		return v.Title
	case *types.Project:
		return v.Name
	case *types.Task:
		return v.Title
	case *types.Thought:
		if len(v.Content) > 60 {
			return v.Content[:60]
		}
		return v.Content
	case *types.Person:
		return v.Name
	case *types.Portfolio:
		return v.Name
	case *types.Spending:
		return v.Description
	}
	return ""
}
