// Package conflict defines the conflict model of the import engine and the
// detector that compares candidate entities against each other and against
// the live store.
package conflict

import (
	"fmt"

	"github.com/daybookhq/daybook/internal/types"
)

// Kind classifies a conflict. Conflicts describe relationships between
// entities, or between an entity and the live store; they are resolved by
// explicit decision, never by silent dropping.
type Kind string

// Conflict kinds.
const (
	KindDuplicateID     Kind = "duplicate_id"
	KindBrokenReference Kind = "broken_reference"
	KindVersionMismatch Kind = "version_mismatch"
	KindDataConstraint  Kind = "data_constraint"
)

// Severity of a conflict. Only error-severity duplicate_id and
// broken_reference conflicts block commit.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Resolution is the chosen strategy for one conflict.
type Resolution string

// Resolutions.
const (
	ResolutionNone      Resolution = ""
	ResolutionSkip      Resolution = "skip"
	ResolutionReplace   Resolution = "replace"
	ResolutionMerge     Resolution = "merge"
	ResolutionCreateNew Resolution = "create_new"
	ResolutionDefer     Resolution = "defer"
)

// IsValid checks the resolution value.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionSkip, ResolutionReplace, ResolutionMerge, ResolutionCreateNew, ResolutionDefer:
		return true
	}
	return false
}

// AppliesTo reports whether the resolution is meaningful for a conflict
// kind. Replace and merge need an existing entity to act on, so they only
// apply where the store already holds one.
func (r Resolution) AppliesTo(k Kind) bool {
	switch r {
	case ResolutionSkip, ResolutionCreateNew, ResolutionDefer:
		return true
	case ResolutionReplace, ResolutionMerge:
		return k == KindDuplicateID || k == KindVersionMismatch
	}
	return false
}

// Details carries kind-specific context for display and resolution.
type Details struct {
	// Broken reference: the field holding the reference and its target.
	Field          string           `json:"field,omitempty"`
	ReferencedType types.EntityType `json:"referencedType,omitempty"`
	ReferencedID   string           `json:"referencedId,omitempty"`
	// Duplicate ID: a summary of the entity already in the store.
	Existing types.Entity `json:"existing,omitempty"`
	// Data constraint: the member IDs of a dependency cycle.
	CycleIDs []string `json:"cycleIds,omitempty"`
}

// Conflict is one detected relationship-level problem awaiting a Resolution.
type Conflict struct {
	ID         string           `json:"id"`
	Kind       Kind             `json:"kind"`
	Severity   Severity         `json:"severity"`
	EntityType types.EntityType `json:"entityType,omitempty"`
	EntityID   string           `json:"entityId,omitempty"`
	Title      string           `json:"title,omitempty"`
	Message    string           `json:"message"`
	Details    *Details         `json:"details,omitempty"`
	Resolution Resolution       `json:"resolution,omitempty"`
}

// Blocking reports whether this conflict, while unresolved or deferred,
// prevents commit.
func (c *Conflict) Blocking() bool {
	if c.Severity != SeverityError {
		return false
	}
	return c.Kind == KindDuplicateID || c.Kind == KindBrokenReference
}

// Resolved reports whether a non-defer resolution has been applied.
func (c *Conflict) Resolved() bool {
	return c.Resolution != ResolutionNone && c.Resolution != ResolutionDefer
}

// Conflict IDs are deterministic so re-detection can dedupe against the
// existing list and callers can address conflicts across detector runs.

func duplicateConflictID(t types.EntityType, id string) string {
	return fmt.Sprintf("dup:%s:%s", t, id)
}

func referenceConflictID(t types.EntityType, id, field, refID string) string {
	return fmt.Sprintf("ref:%s:%s:%s:%s", t, id, field, refID)
}

func versionConflictID(version string) string {
	return fmt.Sprintf("ver:%s", version)
}

func cycleConflictID(t types.EntityType, members []string) string {
	first := ""
	if len(members) > 0 {
		first = members[0]
	}
	return fmt.Sprintf("cycle:%s:%s", t, first)
}
