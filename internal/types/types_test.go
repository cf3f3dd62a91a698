package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityTypeIsValid(t *testing.T) {
	for _, et := range AllEntityTypes() {
		if !et.IsValid() {
			t.Errorf("expected %s to be valid", et)
		}
	}
	if EntityType("widgets").IsValid() {
		t.Error("expected widgets to be invalid")
	}
}

func TestImportPriorityCoversAllTypes(t *testing.T) {
	seen := make(map[EntityType]bool)
	for _, et := range ImportPriority {
		seen[et] = true
	}
	for _, et := range AllEntityTypes() {
		if !seen[et] {
			t.Errorf("import priority missing %s", et)
		}
	}
}

func TestReferencesEnumeration(t *testing.T) {
	task := &Task{ID: "t1", Title: "write report", ProjectID: "p1", ThoughtID: "th1"}
	refs := task.References()
	require.Len(t, refs, 2)
	assert.Equal(t, Reference{Field: "projectId", Type: TypeProject, ID: "p1"}, refs[0])
	assert.Equal(t, Reference{Field: "thoughtId", Type: TypeThought, ID: "th1"}, refs[1])

	thought := &Thought{
		ID:               "th1",
		LinkedTaskIDs:    []string{"t1", "t2"},
		LinkedProjectIDs: []string{"p1"},
		LinkedMoodIDs:    []string{"m1"},
		LinkedPeopleIDs:  []string{"pe1"},
	}
	assert.Len(t, thought.References(), 5)

	mood := &Mood{ID: "m1", Value: 7, Metadata: &MoodMetadata{SourceThoughtID: "th1"}}
	refs = mood.References()
	require.Len(t, refs, 1)
	assert.Equal(t, "metadata.sourceThoughtId", refs[0].Field)

	// Entities without reference fields report none.
	assert.Nil(t, (&Goal{ID: "g1"}).References())
	assert.Nil(t, (&Portfolio{ID: "pf1", Name: "ISA"}).References())
	assert.Nil(t, (&Spending{ID: "s1"}).References())
}

func TestRewriteReferencesScalarAndSlice(t *testing.T) {
	task := &Task{ID: "t1", Title: "x", ProjectID: "p-old", ThoughtID: "th-gone"}
	task.RewriteReferences(func(target EntityType, id string) (string, bool) {
		if id == "p-old" {
			return "p-new", true
		}
		return "", false
	})
	assert.Equal(t, "p-new", task.ProjectID)
	assert.Equal(t, "", task.ThoughtID, "unmapped reference should be cleared")

	proj := &Project{ID: "p1", LinkedTaskIDs: []string{"t1", "t2", "t3"}}
	proj.RewriteReferences(func(target EntityType, id string) (string, bool) {
		if id == "t2" {
			return "", false
		}
		return id, true
	})
	assert.Equal(t, []string{"t1", "t3"}, proj.LinkedTaskIDs)
}

func TestRewriteClearsWholeSliceToNil(t *testing.T) {
	fs := &FocusSession{ID: "f1", Duration: 25, TaskIDs: []string{"t1"}}
	fs.RewriteReferences(func(EntityType, string) (string, bool) { return "", false })
	assert.Nil(t, fs.TaskIDs)
}

func TestDecodeEntityRoundTrip(t *testing.T) {
	raw := []byte(`{"id":"p1","name":"Kitchen","goalId":"g1","linkedTaskIds":["t1"]}`)
	e, err := DecodeEntity(TypeProject, raw)
	require.NoError(t, err)
	proj, ok := e.(*Project)
	require.True(t, ok)
	assert.Equal(t, "p1", proj.ID)
	assert.Equal(t, "g1", proj.GoalID)

	out, err := json.Marshal(proj)
	require.NoError(t, err)
	var again Project
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, *proj, again)
}

func TestDecodeEntityUnknownType(t *testing.T) {
	_, err := DecodeEntity(EntityType("widgets"), []byte(`{}`))
	assert.Error(t, err)
}

func TestCloneEntityIsDeep(t *testing.T) {
	orig := &Thought{ID: "th1", Content: "note", LinkedTaskIDs: []string{"t1"}}
	cloned, err := CloneEntity(orig)
	require.NoError(t, err)
	clone := cloned.(*Thought)
	clone.LinkedTaskIDs[0] = "t9"
	assert.Equal(t, "t1", orig.LinkedTaskIDs[0])
}

func TestExportedDataUnmarshal(t *testing.T) {
	doc := []byte(`{
		"metadata": {"version":"1.0.0","exportedAt":"2026-01-02T03:04:05Z","userId":"u1","totalItems":2,"entityCounts":{"tasks":1,"goals":1}},
		"data": {
			"goals": [{"id":"g1","title":"Health"}],
			"tasks": [{"id":"t1","title":"Run"}],
			"unknownThings": [{"id":"x"}]
		}
	}`)
	var d ExportedData
	require.NoError(t, json.Unmarshal(doc, &d))
	assert.Equal(t, "1.0.0", d.Metadata.Version)
	assert.Equal(t, 2, d.TotalEntities())
	_, hasUnknown := d.Data[EntityType("unknownThings")]
	assert.False(t, hasUnknown)
}
