// Package mergefield implements the field-level merge used when a
// duplicate-ID conflict is resolved with merge: any field the incoming
// entity defines overwrites the stored value, and everything else is kept.
//
// "Defined" means non-zero for the field's Go type: a non-empty string, a
// non-nil pointer, a non-empty slice. Numeric fields where zero is a real
// value are pointers on the entity structs, so absence stays representable.
package mergefield

import (
	"fmt"

	"github.com/daybookhq/daybook/internal/types"
)

// Merge combines an existing stored entity with an incoming one of the same
// type and ID. The result is a new entity; neither input is mutated. The
// merged entity always keeps the existing stored ID.
func Merge(existing, incoming types.Entity) (types.Entity, error) {
	if existing.EntityType() != incoming.EntityType() {
		return nil, fmt.Errorf("cannot merge %s into %s", incoming.EntityType(), existing.EntityType())
	}

	base, err := types.CloneEntity(existing)
	if err != nil {
		return nil, err
	}

	switch out := base.(type) {
	case *types.Goal:
		mergeGoal(out, incoming.(*types.Goal))
	case *types.Project:
		mergeProject(out, incoming.(*types.Project))
	case *types.Task:
		mergeTask(out, incoming.(*types.Task))
	case *types.Thought:
		mergeThought(out, incoming.(*types.Thought))
	case *types.Mood:
		mergeMood(out, incoming.(*types.Mood))
	case *types.FocusSession:
		mergeFocusSession(out, incoming.(*types.FocusSession))
	case *types.Person:
		mergePerson(out, incoming.(*types.Person))
	case *types.Portfolio:
		mergePortfolio(out, incoming.(*types.Portfolio))
	case *types.Spending:
		mergeSpending(out, incoming.(*types.Spending))
	default:
		return nil, fmt.Errorf("no merge function for entity type %s", existing.EntityType())
	}
	return base, nil
}

func pick(existing, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func pickPtr[T any](existing, incoming *T) *T {
	if incoming != nil {
		return incoming
	}
	return existing
}

func pickSlice[T any](existing, incoming []T) []T {
	if len(incoming) > 0 {
		return incoming
	}
	return existing
}

func mergeGoal(out, in *types.Goal) {
	out.Title = pick(out.Title, in.Title)
	out.Description = pick(out.Description, in.Description)
	out.Status = pick(out.Status, in.Status)
	out.TargetDate = pickPtr(out.TargetDate, in.TargetDate)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
	out.UpdatedAt = pickPtr(out.UpdatedAt, in.UpdatedAt)
}

func mergeProject(out, in *types.Project) {
	out.Name = pick(out.Name, in.Name)
	out.Description = pick(out.Description, in.Description)
	out.Status = pick(out.Status, in.Status)
	out.GoalID = pick(out.GoalID, in.GoalID)
	out.ParentProjectID = pick(out.ParentProjectID, in.ParentProjectID)
	out.LinkedTaskIDs = pickSlice(out.LinkedTaskIDs, in.LinkedTaskIDs)
	out.LinkedThoughtIDs = pickSlice(out.LinkedThoughtIDs, in.LinkedThoughtIDs)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
	out.UpdatedAt = pickPtr(out.UpdatedAt, in.UpdatedAt)
}

func mergeTask(out, in *types.Task) {
	out.Title = pick(out.Title, in.Title)
	out.Description = pick(out.Description, in.Description)
	out.Status = pick(out.Status, in.Status)
	out.Priority = pickPtr(out.Priority, in.Priority)
	out.ProjectID = pick(out.ProjectID, in.ProjectID)
	out.ThoughtID = pick(out.ThoughtID, in.ThoughtID)
	out.DueDate = pickPtr(out.DueDate, in.DueDate)
	out.CompletedAt = pickPtr(out.CompletedAt, in.CompletedAt)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
	out.UpdatedAt = pickPtr(out.UpdatedAt, in.UpdatedAt)
}

func mergeThought(out, in *types.Thought) {
	out.Content = pick(out.Content, in.Content)
	out.Tags = pickSlice(out.Tags, in.Tags)
	out.LinkedTaskIDs = pickSlice(out.LinkedTaskIDs, in.LinkedTaskIDs)
	out.LinkedProjectIDs = pickSlice(out.LinkedProjectIDs, in.LinkedProjectIDs)
	out.LinkedMoodIDs = pickSlice(out.LinkedMoodIDs, in.LinkedMoodIDs)
	out.LinkedPeopleIDs = pickSlice(out.LinkedPeopleIDs, in.LinkedPeopleIDs)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
	out.UpdatedAt = pickPtr(out.UpdatedAt, in.UpdatedAt)
}

func mergeMood(out, in *types.Mood) {
	// Value is required on every valid mood, so the incoming reading wins.
	out.Value = in.Value
	out.Note = pick(out.Note, in.Note)
	out.Metadata = pickPtr(out.Metadata, in.Metadata)
	out.RecordedAt = pickPtr(out.RecordedAt, in.RecordedAt)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
}

func mergeFocusSession(out, in *types.FocusSession) {
	// Duration is required on every valid session.
	out.Duration = in.Duration
	out.TaskIDs = pickSlice(out.TaskIDs, in.TaskIDs)
	out.Notes = pick(out.Notes, in.Notes)
	out.StartedAt = pickPtr(out.StartedAt, in.StartedAt)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
}

func mergePerson(out, in *types.Person) {
	out.Name = pick(out.Name, in.Name)
	out.Relationship = pick(out.Relationship, in.Relationship)
	out.Notes = pick(out.Notes, in.Notes)
	out.LinkedThoughtIDs = pickSlice(out.LinkedThoughtIDs, in.LinkedThoughtIDs)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
	out.UpdatedAt = pickPtr(out.UpdatedAt, in.UpdatedAt)
}

func mergePortfolio(out, in *types.Portfolio) {
	out.Name = pick(out.Name, in.Name)
	out.Currency = pick(out.Currency, in.Currency)
	out.Investments = pickSlice(out.Investments, in.Investments)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
	out.UpdatedAt = pickPtr(out.UpdatedAt, in.UpdatedAt)
}

func mergeSpending(out, in *types.Spending) {
	out.Amount = pickPtr(out.Amount, in.Amount)
	out.Category = pick(out.Category, in.Category)
	out.Description = pick(out.Description, in.Description)
	out.Date = pickPtr(out.Date, in.Date)
	out.CreatedAt = pickPtr(out.CreatedAt, in.CreatedAt)
}
