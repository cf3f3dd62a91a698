package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/types"
)

func testSelection() *Selection {
	return New(map[types.EntityType][]types.Entity{
		types.TypeTask: {
			&types.Task{ID: "task-1", Title: "a"},
			&types.Task{ID: "task-2", Title: "b"},
		},
		types.TypeProject: {
			&types.Project{ID: "proj-1", Name: "p"},
		},
	})
}

func TestSkipMovesEntityToSkipped(t *testing.T) {
	sel := testSelection()
	require.Equal(t, 3, sel.TotalSelected())

	assert.True(t, sel.Skip(types.TypeTask, "task-1"))
	assert.False(t, sel.Contains(types.TypeTask, "task-1"))
	assert.True(t, sel.Contains(types.TypeTask, "task-2"))
	assert.Equal(t, 2, sel.TotalSelected())
	assert.Equal(t, 1, sel.TotalSkipped())
	assert.Equal(t, []string{"task-1"}, sel.Skipped()[types.TypeTask])
}

func TestSkipUnknownIsNoOp(t *testing.T) {
	sel := testSelection()
	assert.False(t, sel.Skip(types.TypeTask, "task-9"))
	assert.Equal(t, 3, sel.TotalSelected())
	assert.Equal(t, 0, sel.TotalSkipped())
}

func TestSkipIsIdempotent(t *testing.T) {
	sel := testSelection()
	assert.True(t, sel.Skip(types.TypeProject, "proj-1"))
	assert.False(t, sel.Skip(types.TypeProject, "proj-1"))
	assert.Equal(t, 1, sel.TotalSkipped())
	assert.Empty(t, sel.Selected()[types.TypeProject])
}

func TestNewCopiesInputSlices(t *testing.T) {
	entities := map[types.EntityType][]types.Entity{
		types.TypeTask: {&types.Task{ID: "task-1", Title: "a"}},
	}
	sel := New(entities)
	entities[types.TypeTask][0] = &types.Task{ID: "task-x", Title: "swapped"}
	got, ok := sel.Get(types.TypeTask, "task-1")
	require.True(t, ok)
	assert.Equal(t, "a", got.(*types.Task).Title)
}

func TestSkippedListsAreSorted(t *testing.T) {
	sel := testSelection()
	sel.Skip(types.TypeTask, "task-2")
	sel.Skip(types.TypeTask, "task-1")
	assert.Equal(t, []string{"task-1", "task-2"}, sel.Skipped()[types.TypeTask])
}
