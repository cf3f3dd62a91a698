package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/types"
)

func TestPutBatchStrategies(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		strategy storage.Strategy
		want     storage.BatchResult
		wantDesc string
	}{
		{
			name:     "skip existing leaves stored entity alone",
			strategy: storage.StrategySkipExisting,
			want:     storage.BatchResult{Created: 1, Skipped: 1},
			wantDesc: "old description",
		},
		{
			name:     "replace overwrites stored entity",
			strategy: storage.StrategyReplace,
			want:     storage.BatchResult{Created: 1, Replaced: 1},
			wantDesc: "new description",
		},
		{
			name:     "merge keeps stored fields the incoming batch omits",
			strategy: storage.StrategyMerge,
			want:     storage.BatchResult{Created: 1, Merged: 1},
			wantDesc: "old description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Seed(&types.Task{ID: "task-1", Title: "stored", Description: "old description"})

			batch := []types.Entity{
				&types.Task{ID: "task-1", Title: "incoming"},
				&types.Task{ID: "task-2", Title: "fresh"},
			}
			res, err := s.PutBatch(ctx, types.TypeTask, batch, tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)

			got, err := s.Get(ctx, types.TypeTask, "task-1")
			require.NoError(t, err)
			task := got.(*types.Task)
			if tt.strategy == storage.StrategySkipExisting {
				assert.Equal(t, "stored", task.Title)
			} else {
				assert.Equal(t, "incoming", task.Title)
			}
			assert.Equal(t, tt.wantDesc, task.Description)
		})
	}
}

func TestPutBatchRejectsInvalidStrategy(t *testing.T) {
	s := New()
	_, err := s.PutBatch(context.Background(), types.TypeTask, nil, storage.Strategy("upsert"))
	assert.Error(t, err)
}

func TestPutBatchRejectsMixedTypes(t *testing.T) {
	s := New()
	_, err := s.PutBatch(context.Background(), types.TypeTask, []types.Entity{
		&types.Goal{ID: "goal-1", Title: "g"},
	}, storage.StrategyReplace)
	assert.Error(t, err)
}

func TestGetNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), types.TypeTask, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListOrderedByID(t *testing.T) {
	s := New()
	s.Seed(
		&types.Goal{ID: "goal-b", Title: "b"},
		&types.Goal{ID: "goal-a", Title: "a"},
		&types.Goal{ID: "goal-c", Title: "c"},
	)
	got, err := s.List(context.Background(), types.TypeGoal)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.EntityID()
	}
	assert.Equal(t, []string{"goal-a", "goal-b", "goal-c"}, ids)
}

func TestStoredEntitiesAreIsolatedFromCallers(t *testing.T) {
	ctx := context.Background()
	s := New()

	original := &types.Task{ID: "task-1", Title: "stored"}
	s.Seed(original)
	original.Title = "mutated after seed"

	got, err := s.Get(ctx, types.TypeTask, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "stored", got.(*types.Task).Title)

	got.(*types.Task).Title = "mutated after get"
	again, err := s.Get(ctx, types.TypeTask, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "stored", again.(*types.Task).Title)
}
