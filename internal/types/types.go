// Package types defines the core data structures for the daybook
// import/export engine: the closed set of entity types, the typed entity
// variants, and the export wire format.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityType identifies one of the entity collections in an export document.
type EntityType string

// Entity type constants. The string values are the wire-format collection keys.
const (
	TypeGoal         EntityType = "goals"
	TypeProject      EntityType = "projects"
	TypeTask         EntityType = "tasks"
	TypeThought      EntityType = "thoughts"
	TypeMood         EntityType = "moods"
	TypeFocusSession EntityType = "focusSessions"
	TypePerson       EntityType = "people"
	TypePortfolio    EntityType = "portfolios"
	TypeSpending     EntityType = "spending"
)

// AllEntityTypes returns every entity type in a stable order.
func AllEntityTypes() []EntityType {
	return []EntityType{
		TypeGoal, TypeProject, TypeTask, TypeThought, TypeMood,
		TypeFocusSession, TypePerson, TypePortfolio, TypeSpending,
	}
}

// IsValid checks if the entity type value is one of the closed set.
func (t EntityType) IsValid() bool {
	switch t {
	case TypeGoal, TypeProject, TypeTask, TypeThought, TypeMood,
		TypeFocusSession, TypePerson, TypePortfolio, TypeSpending:
		return true
	}
	return false
}

// ImportPriority is the fixed type ordering used as the outer import order:
// referenced types commit before the types that reference them, and the
// reference-free money types commit last.
var ImportPriority = []EntityType{
	TypeGoal, TypeThought, TypeMood, TypePerson,
	TypeProject, TypeTask, TypeFocusSession,
	TypePortfolio, TypeSpending,
}

// Reference is one cross-entity reference held by an entity: the wire field
// it lives in, the entity type it points at, and the referenced ID.
type Reference struct {
	Field string
	Type  EntityType
	ID    string
}

// RewriteFunc maps a referenced ID to its replacement. Returning ok=false
// clears the reference instead.
type RewriteFunc func(target EntityType, id string) (newID string, ok bool)

// Entity is the tagged union over the entity variants. Every variant carries
// its own typed reference-field set so the reference rewriter can be
// exhaustive over variants.
type Entity interface {
	EntityID() string
	SetEntityID(id string)
	EntityType() EntityType
	// References returns every non-empty cross-entity reference.
	References() []Reference
	// RewriteReferences applies fn to every reference field. Slice fields
	// drop cleared elements; scalar fields are emptied.
	RewriteReferences(fn RewriteFunc)
}

// Goal is a long-horizon objective that projects roll up to.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	TargetDate  *time.Time `json:"targetDate,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (g *Goal) EntityID() string          { return g.ID }
func (g *Goal) SetEntityID(id string)     { g.ID = id }
func (g *Goal) EntityType() EntityType    { return TypeGoal }
func (g *Goal) References() []Reference   { return nil }
func (g *Goal) RewriteReferences(RewriteFunc) {}

// Project groups tasks under an optional goal and optional parent project.
type Project struct {
	ID               string     `json:"id"`
	Name             string     `json:"name,omitempty"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status,omitempty"`
	GoalID           string     `json:"goalId,omitempty"`
	ParentProjectID  string     `json:"parentProjectId,omitempty"`
	LinkedTaskIDs    []string   `json:"linkedTaskIds,omitempty"`
	LinkedThoughtIDs []string   `json:"linkedThoughtIds,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func (p *Project) EntityID() string       { return p.ID }
func (p *Project) SetEntityID(id string)  { p.ID = id }
func (p *Project) EntityType() EntityType { return TypeProject }

func (p *Project) References() []Reference {
	var refs []Reference
	if p.GoalID != "" {
		refs = append(refs, Reference{Field: "goalId", Type: TypeGoal, ID: p.GoalID})
	}
	if p.ParentProjectID != "" {
		refs = append(refs, Reference{Field: "parentProjectId", Type: TypeProject, ID: p.ParentProjectID})
	}
	refs = appendSliceRefs(refs, "linkedTaskIds", TypeTask, p.LinkedTaskIDs)
	refs = appendSliceRefs(refs, "linkedThoughtIds", TypeThought, p.LinkedThoughtIDs)
	return refs
}

func (p *Project) RewriteReferences(fn RewriteFunc) {
	p.GoalID = rewriteScalar(fn, TypeGoal, p.GoalID)
	p.ParentProjectID = rewriteScalar(fn, TypeProject, p.ParentProjectID)
	p.LinkedTaskIDs = rewriteSlice(fn, TypeTask, p.LinkedTaskIDs)
	p.LinkedThoughtIDs = rewriteSlice(fn, TypeThought, p.LinkedThoughtIDs)
}

// Task is a unit of work, optionally belonging to a project and optionally
// spawned from a thought.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	ThoughtID   string     `json:"thoughtId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (t *Task) EntityID() string       { return t.ID }
func (t *Task) SetEntityID(id string)  { t.ID = id }
func (t *Task) EntityType() EntityType { return TypeTask }

func (t *Task) References() []Reference {
	var refs []Reference
	if t.ProjectID != "" {
		refs = append(refs, Reference{Field: "projectId", Type: TypeProject, ID: t.ProjectID})
	}
	if t.ThoughtID != "" {
		refs = append(refs, Reference{Field: "thoughtId", Type: TypeThought, ID: t.ThoughtID})
	}
	return refs
}

func (t *Task) RewriteReferences(fn RewriteFunc) {
	t.ProjectID = rewriteScalar(fn, TypeProject, t.ProjectID)
	t.ThoughtID = rewriteScalar(fn, TypeThought, t.ThoughtID)
}

// Thought is a free-form note with soft links into the rest of the dataset.
type Thought struct {
	ID               string     `json:"id"`
	Content          string     `json:"content,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	LinkedTaskIDs    []string   `json:"linkedTaskIds,omitempty"`
	LinkedProjectIDs []string   `json:"linkedProjectIds,omitempty"`
	LinkedMoodIDs    []string   `json:"linkedMoodIds,omitempty"`
	LinkedPeopleIDs  []string   `json:"linkedPeopleIds,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func (th *Thought) EntityID() string       { return th.ID }
func (th *Thought) SetEntityID(id string)  { th.ID = id }
func (th *Thought) EntityType() EntityType { return TypeThought }

func (th *Thought) References() []Reference {
	var refs []Reference
	refs = appendSliceRefs(refs, "linkedTaskIds", TypeTask, th.LinkedTaskIDs)
	refs = appendSliceRefs(refs, "linkedProjectIds", TypeProject, th.LinkedProjectIDs)
	refs = appendSliceRefs(refs, "linkedMoodIds", TypeMood, th.LinkedMoodIDs)
	refs = appendSliceRefs(refs, "linkedPeopleIds", TypePerson, th.LinkedPeopleIDs)
	return refs
}

func (th *Thought) RewriteReferences(fn RewriteFunc) {
	th.LinkedTaskIDs = rewriteSlice(fn, TypeTask, th.LinkedTaskIDs)
	th.LinkedProjectIDs = rewriteSlice(fn, TypeProject, th.LinkedProjectIDs)
	th.LinkedMoodIDs = rewriteSlice(fn, TypeMood, th.LinkedMoodIDs)
	th.LinkedPeopleIDs = rewriteSlice(fn, TypePerson, th.LinkedPeopleIDs)
}

// MoodMetadata carries provenance for a mood reading.
type MoodMetadata struct {
	SourceThoughtID string `json:"sourceThoughtId,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Mood is a single mood reading on a 1-10 scale.
type Mood struct {
	ID         string        `json:"id"`
	Value      float64       `json:"value"`
	Note       string        `json:"note,omitempty"`
	Metadata   *MoodMetadata `json:"metadata,omitempty"`
	RecordedAt *time.Time    `json:"recordedAt,omitempty"`
	CreatedAt  *time.Time    `json:"createdAt,omitempty"`
}

func (m *Mood) EntityID() string       { return m.ID }
func (m *Mood) SetEntityID(id string)  { m.ID = id }
func (m *Mood) EntityType() EntityType { return TypeMood }

func (m *Mood) References() []Reference {
	if m.Metadata == nil || m.Metadata.SourceThoughtID == "" {
		return nil
	}
	return []Reference{{Field: "metadata.sourceThoughtId", Type: TypeThought, ID: m.Metadata.SourceThoughtID}}
}

func (m *Mood) RewriteReferences(fn RewriteFunc) {
	if m.Metadata == nil {
		return
	}
	m.Metadata.SourceThoughtID = rewriteScalar(fn, TypeThought, m.Metadata.SourceThoughtID)
}

// FocusSession is a timed focus block covering zero or more tasks.
type FocusSession struct {
	ID        string     `json:"id"`
	Duration  float64    `json:"duration"`
	TaskIDs   []string   `json:"tasks"`
	Notes     string     `json:"notes,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func (f *FocusSession) EntityID() string       { return f.ID }
func (f *FocusSession) SetEntityID(id string)  { f.ID = id }
func (f *FocusSession) EntityType() EntityType { return TypeFocusSession }

func (f *FocusSession) References() []Reference {
	return appendSliceRefs(nil, "tasks", TypeTask, f.TaskIDs)
}

func (f *FocusSession) RewriteReferences(fn RewriteFunc) {
	f.TaskIDs = rewriteSlice(fn, TypeTask, f.TaskIDs)
}

// Person is a contact that thoughts can link to.
type Person struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Relationship     string     `json:"relationship,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	LinkedThoughtIDs []string   `json:"linkedThoughtIds,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func (p *Person) EntityID() string       { return p.ID }
func (p *Person) SetEntityID(id string)  { p.ID = id }
func (p *Person) EntityType() EntityType { return TypePerson }

func (p *Person) References() []Reference {
	return appendSliceRefs(nil, "linkedThoughtIds", TypeThought, p.LinkedThoughtIDs)
}

func (p *Person) RewriteReferences(fn RewriteFunc) {
	p.LinkedThoughtIDs = rewriteSlice(fn, TypeThought, p.LinkedThoughtIDs)
}

// Investment is one holding inside a portfolio. Investments are embedded
// records, not entities: their IDs are local to the portfolio.
type Investment struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol,omitempty"`
	Name      string   `json:"name,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"`
	CostBasis *float64 `json:"costBasis,omitempty"`
}

// Portfolio is an investment account snapshot.
type Portfolio struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Currency    string       `json:"currency,omitempty"`
	Investments []Investment `json:"investments,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
}

func (p *Portfolio) EntityID() string          { return p.ID }
func (p *Portfolio) SetEntityID(id string)     { p.ID = id }
func (p *Portfolio) EntityType() EntityType    { return TypePortfolio }
func (p *Portfolio) References() []Reference   { return nil }
func (p *Portfolio) RewriteReferences(RewriteFunc) {}

// Spending is a single expense record.
type Spending struct {
	ID          string     `json:"id"`
	Amount      *float64   `json:"amount,omitempty"`
	Category    string     `json:"category,omitempty"`
	Description string     `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

func (s *Spending) EntityID() string          { return s.ID }
func (s *Spending) SetEntityID(id string)     { s.ID = id }
func (s *Spending) EntityType() EntityType    { return TypeSpending }
func (s *Spending) References() []Reference   { return nil }
func (s *Spending) RewriteReferences(RewriteFunc) {}

func appendSliceRefs(refs []Reference, field string, t EntityType, ids []string) []Reference {
	for _, id := range ids {
		if id == "" {
			continue
		}
		refs = append(refs, Reference{Field: field, Type: t, ID: id})
	}
	return refs
}

func rewriteScalar(fn RewriteFunc, t EntityType, id string) string {
	if id == "" {
		return ""
	}
	newID, ok := fn(t, id)
	if !ok {
		return ""
	}
	return newID
}

func rewriteSlice(fn RewriteFunc, t EntityType, ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	out := ids[:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if newID, ok := fn(t, id); ok {
			out = append(out, newID)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NewEntity returns a zero value of the concrete variant for t.
func NewEntity(t EntityType) (Entity, error) {
	switch t {
	case TypeGoal:
		return &Goal{}, nil
	case TypeProject:
		return &Project{}, nil
	case TypeTask:
		return &Task{}, nil
	case TypeThought:
		return &Thought{}, nil
	case TypeMood:
		return &Mood{}, nil
	case TypeFocusSession:
		return &FocusSession{}, nil
	case TypePerson:
		return &Person{}, nil
	case TypePortfolio:
		return &Portfolio{}, nil
	case TypeSpending:
		return &Spending{}, nil
	}
	return nil, fmt.Errorf("unknown entity type: %s", t)
}

// DecodeEntity unmarshals one raw wire object into the typed variant for t.
func DecodeEntity(t EntityType, raw []byte) (Entity, error) {
	e, err := NewEntity(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decoding %s entity: %w", t, err)
	}
	return e, nil
}

// CloneEntity deep-copies an entity through its wire representation.
func CloneEntity(e Entity) (Entity, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("cloning %s entity: %w", e.EntityType(), err)
	}
	return DecodeEntity(e.EntityType(), raw)
}
