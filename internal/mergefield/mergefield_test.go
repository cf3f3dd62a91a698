package mergefield

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/types"
)

func ptr[T any](v T) *T { return &v }

func TestMergeTaskIncomingWins(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := &types.Task{
		ID:          "t1",
		Title:       "old title",
		Description: "old description",
		Status:      "open",
		Priority:    ptr(2),
		ProjectID:   "p1",
	}
	incoming := &types.Task{
		ID:      "t1",
		Title:   "new title",
		DueDate: &due,
	}

	merged, err := Merge(existing, incoming)
	require.NoError(t, err)
	task := merged.(*types.Task)

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "new title", task.Title, "defined incoming field overwrites")
	assert.Equal(t, "old description", task.Description, "undefined incoming field keeps stored value")
	assert.Equal(t, "open", task.Status)
	require.NotNil(t, task.Priority)
	assert.Equal(t, 2, *task.Priority)
	assert.Equal(t, "p1", task.ProjectID)
	assert.Equal(t, due, *task.DueDate)
}

func TestMergeKeepsExistingID(t *testing.T) {
	existing := &types.Goal{ID: "g1", Title: "keep"}
	incoming := &types.Goal{ID: "g-other", Description: "more detail"}
	merged, err := Merge(existing, incoming)
	require.NoError(t, err)
	assert.Equal(t, "g1", merged.EntityID())
	assert.Equal(t, "keep", merged.(*types.Goal).Title)
	assert.Equal(t, "more detail", merged.(*types.Goal).Description)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	existing := &types.Thought{ID: "th1", Content: "old", Tags: []string{"a"}}
	incoming := &types.Thought{ID: "th1", Content: "new"}
	merged, err := Merge(existing, incoming)
	require.NoError(t, err)
	assert.Equal(t, "old", existing.Content)
	assert.Equal(t, "new", merged.(*types.Thought).Content)
	assert.Equal(t, []string{"a"}, merged.(*types.Thought).Tags)
}

func TestMergeMoodValueAlwaysIncoming(t *testing.T) {
	existing := &types.Mood{ID: "m1", Value: 3, Note: "rough day"}
	incoming := &types.Mood{ID: "m1", Value: 8}
	merged, err := Merge(existing, incoming)
	require.NoError(t, err)
	mood := merged.(*types.Mood)
	assert.Equal(t, float64(8), mood.Value)
	assert.Equal(t, "rough day", mood.Note)
}

func TestMergeSliceReplacementNotUnion(t *testing.T) {
	existing := &types.Project{ID: "p1", Name: "x", LinkedTaskIDs: []string{"t1", "t2"}}
	incoming := &types.Project{ID: "p1", LinkedTaskIDs: []string{"t3"}}
	merged, err := Merge(existing, incoming)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, merged.(*types.Project).LinkedTaskIDs)
}

func TestMergeTypeMismatch(t *testing.T) {
	_, err := Merge(&types.Goal{ID: "g1"}, &types.Task{ID: "g1", Title: "x"})
	assert.Error(t, err)
}

func TestMergeAllTypesTotal(t *testing.T) {
	// Every variant must have a merge function; a missing case would error.
	entities := []types.Entity{
		&types.Goal{ID: "e"},
		&types.Project{ID: "e"},
		&types.Task{ID: "e", Title: "t"},
		&types.Thought{ID: "e"},
		&types.Mood{ID: "e", Value: 5},
		&types.FocusSession{ID: "e", Duration: 10},
		&types.Person{ID: "e", Name: "n"},
		&types.Portfolio{ID: "e", Name: "n"},
		&types.Spending{ID: "e"},
	}
	for _, e := range entities {
		_, err := Merge(e, e)
		assert.NoError(t, err, "merge should be total over %s", e.EntityType())
	}
}
