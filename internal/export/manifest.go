package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daybookhq/daybook/internal/types"
)

// Manifest is the sidecar written next to an export file. It lets a later
// import verify that the export it is reading is complete and untampered.
type Manifest struct {
	ExportedAt   time.Time                `json:"exportedAt"`
	Version      string                   `json:"version"`
	TotalItems   int                      `json:"totalItems"`
	EntityCounts map[types.EntityType]int `json:"entityCounts,omitempty"`
	SHA256       string                   `json:"sha256"`
}

// ManifestPath derives the sidecar path for an export file.
func ManifestPath(exportPath string) string {
	return strings.TrimSuffix(exportPath, filepath.Ext(exportPath)) + ".manifest.json"
}

// WriteManifest hashes the written export file and writes the sidecar next
// to it, atomically.
func WriteManifest(exportPath string, doc *types.ExportedData) error {
	data, err := os.ReadFile(exportPath)
	if err != nil {
		return fmt.Errorf("failed to read export for hashing: %w", err)
	}
	sum := sha256.Sum256(data)

	m := &Manifest{
		ExportedAt:   doc.Metadata.ExportedAt,
		Version:      doc.Metadata.Version,
		TotalItems:   doc.Metadata.TotalItems,
		EntityCounts: doc.Metadata.EntityCounts,
		SHA256:       hex.EncodeToString(sum[:]),
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	manifestPath := ManifestPath(exportPath)
	tempFile, err := os.CreateTemp(filepath.Dir(manifestPath), filepath.Base(manifestPath)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	if _, err := tempFile.Write(raw); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	// Close before rename (required on Windows; double-close in defer is harmless)
	_ = tempFile.Close()

	if err := os.Rename(tempPath, manifestPath); err != nil {
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}
	return nil
}

// VerifyManifest checks an export file against its sidecar. It returns
// whether a sidecar was found; a missing sidecar is not an error, the
// caller decides how strict to be.
func VerifyManifest(exportPath string) (bool, error) {
	raw, err := os.ReadFile(ManifestPath(exportPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return false, fmt.Errorf("failed to parse manifest: %w", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		return false, fmt.Errorf("failed to read export for verification: %w", err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != m.SHA256 {
		return true, fmt.Errorf("export file does not match its manifest checksum")
	}
	return true, nil
}
