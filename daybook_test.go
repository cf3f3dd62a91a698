package daybook_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/daybookhq/daybook"
)

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	ctx := context.Background()
	store, err := daybook.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if store == nil {
		t.Error("expected non-nil store")
	}
}

func TestOpenWorkspace_NoMetadata(t *testing.T) {
	// Missing metadata.json should use defaults.
	tmpDir := t.TempDir()
	daybookDir := filepath.Join(tmpDir, ".daybook")
	if err := os.MkdirAll(daybookDir, 0755); err != nil {
		t.Fatalf("failed to create .daybook dir: %v", err)
	}

	ctx := context.Background()
	store, err := daybook.OpenWorkspace(ctx, daybookDir)
	if err != nil {
		t.Fatalf("OpenWorkspace (no metadata) failed: %v", err)
	}
	defer store.Close()

	if store == nil {
		t.Error("expected non-nil store")
	}
}

func TestFindWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	daybookDir := filepath.Join(tmpDir, ".daybook")
	if err := os.MkdirAll(daybookDir, 0755); err != nil {
		t.Fatalf("failed to create .daybook dir: %v", err)
	}
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	found, ok := daybook.FindWorkspace(nested)
	if !ok {
		t.Fatal("FindWorkspace should find the workspace from a nested dir")
	}
	if found != daybookDir {
		t.Errorf("FindWorkspace returned %s, expected %s", found, daybookDir)
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := daybook.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	raw := []byte(`{
		"metadata": {"version": "1.0", "exportedAt": "2026-08-01T00:00:00Z", "userId": "u-1"},
		"data": {
			"projects": [{"id": "proj-1", "name": "Garden"}],
			"tasks": [{"id": "task-1", "title": "Plant seeds", "projectId": "proj-1"}]
		}
	}`)

	sess, err := daybook.BeginImport(ctx, store, raw, daybook.DefaultImportOptions())
	if err != nil {
		t.Fatalf("BeginImport failed: %v", err)
	}
	res, err := sess.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("Created = %d, want 2", res.Created)
	}

	doc, err := daybook.Export(ctx, store, "u-1")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if doc.Metadata.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", doc.Metadata.TotalItems)
	}
	if _, err := json.Marshal(doc); err != nil {
		t.Errorf("export document should marshal: %v", err)
	}
}

// Test that exported constants have correct wire values
func TestConstants(t *testing.T) {
	if daybook.TypeGoal != "goals" {
		t.Errorf("TypeGoal = %q, want %q", daybook.TypeGoal, "goals")
	}
	if daybook.TypeTask != "tasks" {
		t.Errorf("TypeTask = %q, want %q", daybook.TypeTask, "tasks")
	}
	if daybook.TypeFocusSession != "focusSessions" {
		t.Errorf("TypeFocusSession = %q, want %q", daybook.TypeFocusSession, "focusSessions")
	}

	if daybook.StrategySkipExisting != "skip_existing" {
		t.Errorf("StrategySkipExisting = %q, want %q", daybook.StrategySkipExisting, "skip_existing")
	}
	if daybook.StrategyReplace != "replace" {
		t.Errorf("StrategyReplace = %q, want %q", daybook.StrategyReplace, "replace")
	}
	if daybook.StrategyMerge != "merge" {
		t.Errorf("StrategyMerge = %q, want %q", daybook.StrategyMerge, "merge")
	}
}
