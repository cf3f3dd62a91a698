package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/storage/memory"
	"github.com/daybookhq/daybook/internal/types"
)

func seededStore() *memory.Store {
	s := memory.New()
	s.Seed(
		&types.Goal{ID: "goal-1", Title: "health"},
		&types.Project{ID: "proj-1", Name: "gym", GoalID: "goal-1"},
		&types.Task{ID: "task-1", Title: "sign up", ProjectID: "proj-1"},
		&types.Task{ID: "task-2", Title: "first session", ProjectID: "proj-1"},
	)
	return s
}

func TestSnapshotCountsAndOmitsEmptyCollections(t *testing.T) {
	p := NewProducer(seededStore())
	doc, err := p.Snapshot(context.Background(), Options{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, types.CurrentVersion, doc.Metadata.Version)
	assert.Equal(t, "user-1", doc.Metadata.UserID)
	assert.Equal(t, 4, doc.Metadata.TotalItems)
	assert.Equal(t, 2, doc.Metadata.EntityCounts[types.TypeTask])
	assert.Len(t, doc.Data[types.TypeTask], 2)
	assert.NotContains(t, doc.Data, types.TypeMood)
}

func TestSnapshotFiltersTypes(t *testing.T) {
	p := NewProducer(seededStore())
	doc, err := p.Snapshot(context.Background(), Options{Types: []types.EntityType{types.TypeTask}})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Metadata.TotalItems)
	assert.NotContains(t, doc.Data, types.TypeGoal)
}

func TestWriteDocumentRoundTrip(t *testing.T) {
	p := NewProducer(seededStore())
	doc, err := p.Snapshot(context.Background(), Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, WriteDocument(path, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got types.ExportedData
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, doc.Metadata.TotalItems, got.TotalEntities())
	assert.Len(t, got.Data[types.TypeTask], 2)
}

func TestManifestVerification(t *testing.T) {
	p := NewProducer(seededStore())
	doc, err := p.Snapshot(context.Background(), Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, WriteDocument(path, doc))
	require.NoError(t, WriteManifest(path, doc))

	found, err := VerifyManifest(path)
	require.NoError(t, err)
	assert.True(t, found)

	// Tamper with the export and the checksum no longer matches.
	require.NoError(t, os.WriteFile(path, []byte(`{"metadata":{},"data":{}}`), 0o600))
	found, err = VerifyManifest(path)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestVerifyManifestMissingSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	found, err := VerifyManifest(path)
	require.NoError(t, err)
	assert.False(t, found)
}
