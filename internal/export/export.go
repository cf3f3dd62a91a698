// Package export produces export documents from the live store and writes
// them to disk atomically. Import-time backups reuse the same producer.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/types"
)

// Options controls what goes into a snapshot.
type Options struct {
	// UserID is stamped into the metadata. Optional.
	UserID string
	// Types limits the snapshot to the given entity types. Empty means all.
	Types []types.EntityType
}

// Producer builds export documents from a store.
type Producer struct {
	store storage.Store
}

// NewProducer creates a producer over the given store.
func NewProducer(store storage.Store) *Producer {
	return &Producer{store: store}
}

// Snapshot reads the requested entity collections and assembles a complete
// export document. Empty collections are omitted from the data map.
func (p *Producer) Snapshot(ctx context.Context, opts Options) (*types.ExportedData, error) {
	wanted := opts.Types
	if len(wanted) == 0 {
		wanted = types.AllEntityTypes()
	}

	doc := &types.ExportedData{
		Metadata: types.ExportMetadata{
			Version:      types.CurrentVersion,
			ExportedAt:   time.Now().UTC(),
			UserID:       opts.UserID,
			EntityCounts: make(map[types.EntityType]int),
		},
		Data: make(map[types.EntityType][]types.Entity),
	}

	for _, t := range wanted {
		list, err := p.store.List(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", t, err)
		}
		if len(list) == 0 {
			continue
		}
		doc.Data[t] = list
		doc.Metadata.EntityCounts[t] = len(list)
		doc.Metadata.TotalItems += len(list)
	}
	return doc, nil
}

// WriteDocument writes the document to path via a temp file and rename, so a
// crash mid-write never leaves a truncated export behind.
func WriteDocument(path string, doc *types.ExportedData) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export document: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write export document: %w", err)
	}
	// Close before rename (required on Windows; double-close in defer is harmless)
	_ = tempFile.Close()

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace export file: %w", err)
	}

	if err := os.Chmod(path, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set export file permissions: %v\n", err)
	}
	return nil
}
