// Package importer orchestrates the import pipeline: validate the document,
// build the dependency graph, detect conflicts, apply resolutions, remap
// identifiers, and commit to the store in dependency order.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/daybookhq/daybook/internal/conflict"
	"github.com/daybookhq/daybook/internal/depgraph"
	"github.com/daybookhq/daybook/internal/export"
	"github.com/daybookhq/daybook/internal/idmap"
	"github.com/daybookhq/daybook/internal/session"
	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/types"
	"github.com/daybookhq/daybook/internal/validation"
)

// ErrInvalidDocument means validation left no importable entities.
var ErrInvalidDocument = errors.New("document failed validation")

// ErrUnresolvedConflicts means blocking conflicts are still open.
var ErrUnresolvedConflicts = errors.New("unresolved blocking conflicts")

const commitRetries = 3

// Options configures an import session.
type Options struct {
	// Strategy decides what happens to entities whose ID already exists in
	// the store at commit time. Per-conflict replace and merge resolutions
	// override it for individual entities.
	Strategy storage.Strategy
	// PreserveIDs keeps source identifiers. When false every entity gets a
	// freshly generated ID.
	PreserveIDs bool
	// UpdateReferences rewrites cross-entity references to the destination
	// IDs. Turning it off stamps new IDs but leaves reference fields as-is.
	UpdateReferences bool
	// CreateBackup snapshots the store to BackupDir before committing.
	CreateBackup bool
	BackupDir    string
	// AutoResolve applies DefaultResolution to every blocking conflict as
	// soon as detection finishes.
	AutoResolve       bool
	DefaultResolution conflict.Resolution
	// DryRun runs the whole pipeline, including ID mapping, but writes
	// nothing.
	DryRun bool
}

// DefaultOptions returns the option set used when the caller specifies
// nothing: keep IDs, rewrite references, skip on collision.
func DefaultOptions() Options {
	return Options{
		Strategy:          storage.StrategySkipExisting,
		PreserveIDs:       true,
		UpdateReferences:  true,
		DefaultResolution: conflict.ResolutionSkip,
	}
}

// Result is the import report handed back by Commit.
type Result struct {
	DryRun     bool                           `json:"dryRun,omitempty"`
	BackupPath string                         `json:"backupPath,omitempty"`
	Created    int                            `json:"created"`
	Replaced   int                            `json:"replaced"`
	Merged     int                            `json:"merged"`
	Skipped    int                            `json:"skipped"`
	SkippedIDs map[types.EntityType][]string  `json:"skippedIds,omitempty"`
	Remapped   map[string]string              `json:"remapped,omitempty"`
	Preserved  int                            `json:"preserved"`
	Issues     []validation.Issue             `json:"issues,omitempty"`
	Conflicts  int                            `json:"conflicts"`
	Resolved   int                            `json:"resolved"`
	Duration   time.Duration                  `json:"duration"`
}

// Session is one in-flight import. It is not safe for concurrent use.
type Session struct {
	store     storage.Store
	opts      Options
	valResult *validation.Result
	selection *session.Selection
	rel       *depgraph.RelationshipMap
	detector  *conflict.Detector

	conflicts []*conflict.Conflict
	byID      map[string]*conflict.Conflict

	// createNew holds source IDs forced onto fresh identifiers by
	// create_new resolutions on duplicate_id conflicts.
	createNew map[string]bool
	// overrides holds per-entity strategy overrides from replace and merge
	// resolutions, keyed by type/id.
	overrides map[string]storage.Strategy

	committed bool
}

// Begin parses and validates the raw export document and runs conflict
// detection. The returned session carries the validation result even when
// the document is invalid, so callers can report the issues.
func Begin(ctx context.Context, store storage.Store, raw []byte, opts Options) (*Session, error) {
	if opts.Strategy == "" {
		opts.Strategy = storage.StrategySkipExisting
	}
	if !opts.Strategy.IsValid() {
		return nil, fmt.Errorf("invalid import strategy %q", opts.Strategy)
	}
	if opts.DefaultResolution == conflict.ResolutionNone {
		opts.DefaultResolution = conflict.ResolutionSkip
	}
	if !opts.DefaultResolution.IsValid() {
		return nil, fmt.Errorf("invalid default resolution %q", opts.DefaultResolution)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing import document: %w", err)
	}

	s := &Session{
		store:     store,
		opts:      opts,
		valResult: validation.ValidateDocument(doc),
		byID:      make(map[string]*conflict.Conflict),
		createNew: make(map[string]bool),
		overrides: make(map[string]storage.Strategy),
	}
	if !s.valResult.IsValid {
		return s, ErrInvalidDocument
	}

	s.selection = session.New(s.valResult.Entities)
	s.rel = depgraph.Build(s.selection.Selected())
	s.detector = conflict.NewDetector(store)

	version := ""
	if s.valResult.Metadata != nil {
		version = s.valResult.Metadata.Version
	}
	detected, err := s.detector.Detect(ctx, s.selection.Selected(), version, s.rel.Cycles)
	if err != nil {
		return nil, err
	}
	for _, c := range detected {
		s.addConflict(c)
	}

	if opts.AutoResolve {
		if err := s.ResolveAll(ctx, opts.DefaultResolution); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) addConflict(c *conflict.Conflict) {
	if _, seen := s.byID[c.ID]; seen {
		return
	}
	s.byID[c.ID] = c
	s.conflicts = append(s.conflicts, c)
}

// Validation returns the document validation result.
func (s *Session) Validation() *validation.Result { return s.valResult }

// Relationships returns the dependency graph built at Begin.
func (s *Session) Relationships() *depgraph.RelationshipMap { return s.rel }

// Conflicts returns every conflict detected so far, in detection order.
func (s *Session) Conflicts() []*conflict.Conflict {
	return append([]*conflict.Conflict(nil), s.conflicts...)
}

// TotalSelected returns how many entities are currently selected for
// import. The count shrinks as skip resolutions are applied.
func (s *Session) TotalSelected() int {
	if s.selection == nil {
		return 0
	}
	return s.selection.TotalSelected()
}

// TotalSkipped returns how many entities have been skipped so far.
func (s *Session) TotalSkipped() int {
	if s.selection == nil {
		return 0
	}
	return s.selection.TotalSkipped()
}

// SkippedIDs returns the skipped identifiers grouped by type.
func (s *Session) SkippedIDs() map[types.EntityType][]string {
	if s.selection == nil {
		return nil
	}
	return s.selection.Skipped()
}

// Pending returns the blocking conflicts that still need a resolution.
// Conflicts attached to entities that have since been skipped are not
// pending; skipping an entity retires its conflicts.
func (s *Session) Pending() []*conflict.Conflict {
	var out []*conflict.Conflict
	for _, c := range s.conflicts {
		if !c.Blocking() || c.Resolved() {
			continue
		}
		if c.EntityID != "" && !s.selection.Contains(c.EntityType, c.EntityID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Ready reports whether the session can commit.
func (s *Session) Ready() error {
	if !s.valResult.IsValid {
		return ErrInvalidDocument
	}
	if n := len(s.Pending()); n > 0 {
		return fmt.Errorf("%w: %d remaining", ErrUnresolvedConflicts, n)
	}
	return nil
}

// Resolve applies a resolution to one conflict by ID. Skip resolutions
// remove the entity from the selection and re-check references that pointed
// at it; newly dangling references surface as additional conflicts.
func (s *Session) Resolve(ctx context.Context, conflictID string, r conflict.Resolution) error {
	if !r.IsValid() {
		return fmt.Errorf("invalid resolution %q", r)
	}
	c, ok := s.byID[conflictID]
	if !ok {
		return fmt.Errorf("unknown conflict %q", conflictID)
	}

	switch c.Kind {
	case conflict.KindDuplicateID:
		return s.resolveDuplicate(ctx, c, r)
	case conflict.KindBrokenReference:
		return s.resolveBrokenReference(ctx, c, r)
	case conflict.KindDataConstraint:
		return s.resolveCycle(ctx, c, r)
	case conflict.KindVersionMismatch:
		// Advisory; any resolution acknowledges it.
		c.Resolution = r
		return nil
	}
	return fmt.Errorf("conflict %q has unknown kind %q", conflictID, c.Kind)
}

// ResolveAll applies one resolution to every pending blocking conflict,
// iterating until skip fixpoint detection stops producing new ones.
// Conflicts the resolution does not apply to (bulk replace while a broken
// reference is pending) are left pending rather than failing the pass.
func (s *Session) ResolveAll(ctx context.Context, r conflict.Resolution) error {
	if !r.IsValid() {
		return fmt.Errorf("invalid resolution %q", r)
	}
	for {
		applied := 0
		for _, c := range s.Pending() {
			if !r.AppliesTo(c.Kind) {
				continue
			}
			if err := s.Resolve(ctx, c.ID, r); err != nil {
				return err
			}
			applied++
		}
		if applied == 0 || r == conflict.ResolutionDefer {
			// Defer never shrinks the pending set.
			return nil
		}
	}
}

func (s *Session) resolveDuplicate(ctx context.Context, c *conflict.Conflict, r conflict.Resolution) error {
	switch r {
	case conflict.ResolutionSkip:
		if err := s.skipEntity(ctx, c.EntityType, c.EntityID); err != nil {
			return err
		}
	case conflict.ResolutionReplace:
		s.overrides[overrideKey(c.EntityType, c.EntityID)] = storage.StrategyReplace
	case conflict.ResolutionMerge:
		s.overrides[overrideKey(c.EntityType, c.EntityID)] = storage.StrategyMerge
	case conflict.ResolutionCreateNew:
		s.createNew[c.EntityID] = true
	case conflict.ResolutionDefer:
	}
	c.Resolution = r
	return nil
}

func (s *Session) resolveBrokenReference(ctx context.Context, c *conflict.Conflict, r conflict.Resolution) error {
	switch r {
	case conflict.ResolutionSkip:
		if err := s.skipEntity(ctx, c.EntityType, c.EntityID); err != nil {
			return err
		}
	case conflict.ResolutionCreateNew:
		// Keep the entity, drop the dangling reference.
		e, ok := s.selection.Get(c.EntityType, c.EntityID)
		if ok && c.Details != nil {
			e.RewriteReferences(func(t types.EntityType, id string) (string, bool) {
				if t == c.Details.ReferencedType && id == c.Details.ReferencedID {
					return "", false
				}
				return id, true
			})
		}
	case conflict.ResolutionDefer:
	default:
		return fmt.Errorf("resolution %q does not apply to broken references", r)
	}
	c.Resolution = r
	return nil
}

func (s *Session) resolveCycle(ctx context.Context, c *conflict.Conflict, r conflict.Resolution) error {
	members := []string{c.EntityID}
	if c.Details != nil && len(c.Details.CycleIDs) > 0 {
		members = c.Details.CycleIDs
	}
	switch r {
	case conflict.ResolutionSkip:
		for _, id := range members {
			if err := s.skipEntity(ctx, c.EntityType, id); err != nil {
				return err
			}
		}
	case conflict.ResolutionCreateNew:
		// Break the cycle by clearing the back edge: the lexicographically
		// last member drops its in-cycle references.
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		last := sorted[len(sorted)-1]
		inCycle := make(map[string]bool, len(sorted))
		for _, id := range sorted {
			inCycle[id] = true
		}
		if e, ok := s.selection.Get(c.EntityType, last); ok {
			e.RewriteReferences(func(t types.EntityType, id string) (string, bool) {
				if t == c.EntityType && inCycle[id] {
					return "", false
				}
				return id, true
			})
		}
	case conflict.ResolutionDefer:
	default:
		return fmt.Errorf("resolution %q does not apply to dependency cycles", r)
	}
	c.Resolution = r
	return nil
}

// skipEntity removes an entity from the selection and re-detects references
// that pointed at it. Found danglers join the conflict list under their
// deterministic IDs, so re-detection never duplicates a conflict.
func (s *Session) skipEntity(ctx context.Context, t types.EntityType, id string) error {
	if !s.selection.Skip(t, id) {
		return nil
	}
	newConflicts, err := s.detector.DetectReferencesTo(ctx, s.selection.Selected(), t, id)
	if err != nil {
		return err
	}
	for _, c := range newConflicts {
		s.addConflict(c)
	}
	return nil
}

func overrideKey(t types.EntityType, id string) string {
	return string(t) + "/" + id
}

func (s *Session) effectiveStrategy(t types.EntityType, id string) storage.Strategy {
	if st, ok := s.overrides[overrideKey(t, id)]; ok {
		return st
	}
	return s.opts.Strategy
}

// Commit runs ID mapping, reference rewriting, the optional backup, and the
// per-type batched writes. With DryRun set it computes the full report,
// including remappings, without writing anything.
func (s *Session) Commit(ctx context.Context) (*Result, error) {
	start := time.Now()
	if s.committed {
		return nil, errors.New("session already committed")
	}
	if err := s.Ready(); err != nil {
		return nil, err
	}

	res := &Result{
		DryRun:     s.opts.DryRun,
		SkippedIDs: s.selection.Skipped(),
		Skipped:    s.selection.TotalSkipped(),
		Issues:     s.valResult.Issues,
		Conflicts:  len(s.conflicts),
	}
	for _, c := range s.conflicts {
		if c.Resolved() {
			res.Resolved++
		}
	}

	selected := s.selection.Selected()

	if s.opts.CreateBackup && !s.opts.DryRun {
		path, err := s.writeBackup(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating pre-import backup: %w", err)
		}
		res.BackupPath = path
	}

	mapping, err := idmap.Build(ctx, selected, s.opts.PreserveIDs, s.createNew, s.detector.ExistsInStore)
	if err != nil {
		return nil, err
	}

	// Batch boundaries are decided on source IDs before stamping.
	type run struct {
		strategy storage.Strategy
		entities []types.Entity
	}
	runsByType := make(map[types.EntityType][]run)
	for _, t := range s.rel.ImportOrder {
		byID := make(map[string]types.Entity, len(selected[t]))
		for _, e := range selected[t] {
			byID[e.EntityID()] = e
		}
		var runs []run
		for _, id := range s.rel.OrderedIDs[t] {
			e, ok := byID[id]
			if !ok {
				continue // skipped after graph construction
			}
			st := s.effectiveStrategy(t, id)
			if n := len(runs); n > 0 && runs[n-1].strategy == st {
				runs[n-1].entities = append(runs[n-1].entities, e)
			} else {
				runs = append(runs, run{strategy: st, entities: []types.Entity{e}})
			}
		}
		runsByType[t] = runs
	}

	if err := idmap.Apply(ctx, selected, mapping, s.opts.UpdateReferences, s.detector.ExistsInStore); err != nil {
		return nil, err
	}
	res.Remapped = mapping.OldToNew
	res.Preserved = mapping.Preserved

	for _, t := range s.rel.ImportOrder {
		for _, r := range runsByType[t] {
			if s.opts.DryRun {
				if err := s.tallyDryRun(ctx, t, r.entities, r.strategy, res); err != nil {
					return nil, err
				}
				continue
			}
			batch, err := s.putWithRetry(ctx, t, r.entities, r.strategy)
			if err != nil {
				return nil, fmt.Errorf("committing %s batch: %w", t, err)
			}
			res.Created += batch.Created
			res.Replaced += batch.Replaced
			res.Merged += batch.Merged
			res.Skipped += batch.Skipped
		}
	}

	res.Duration = time.Since(start)
	if !s.opts.DryRun {
		s.committed = true
	}
	return res, nil
}

// putWithRetry wraps PutBatch in exponential backoff so a transiently locked
// store does not fail the whole import.
func (s *Session) putWithRetry(ctx context.Context, t types.EntityType, entities []types.Entity, strategy storage.Strategy) (storage.BatchResult, error) {
	var batch storage.BatchResult
	op := func() error {
		var err error
		batch, err = s.store.PutBatch(ctx, t, entities, strategy)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), commitRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return storage.BatchResult{}, err
	}
	return batch, nil
}

// tallyDryRun predicts what PutBatch would have done using the detector's
// existence cache.
func (s *Session) tallyDryRun(ctx context.Context, t types.EntityType, entities []types.Entity, strategy storage.Strategy, res *Result) error {
	for _, e := range entities {
		exists, err := s.detector.ExistsInStore(ctx, t, e.EntityID())
		if err != nil {
			return err
		}
		switch {
		case !exists:
			res.Created++
		case strategy == storage.StrategyReplace:
			res.Replaced++
		case strategy == storage.StrategyMerge:
			res.Merged++
		default:
			res.Skipped++
		}
	}
	return nil
}

func (s *Session) writeBackup(ctx context.Context) (string, error) {
	dir := s.opts.BackupDir
	if dir == "" {
		dir = "."
	}
	doc, err := export.NewProducer(s.store).Snapshot(ctx, export.Options{})
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("daybook-backup-%s-%s.json",
		time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	path := filepath.Join(dir, name)
	if err := export.WriteDocument(path, doc); err != nil {
		return "", err
	}
	if err := export.WriteManifest(path, doc); err != nil {
		// The backup itself is intact; report and continue.
		fmt.Fprintf(os.Stderr, "Warning: failed to write backup manifest: %v\n", err)
	}
	return path, nil
}
