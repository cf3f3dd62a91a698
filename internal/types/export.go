package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// SupportedVersions is the set of export document versions this engine reads
// without a warning. Other versions are accepted with a schema_version
// warning, never rejected.
var SupportedVersions = map[string]bool{
	"1.0.0": true,
}

// CurrentVersion is the version stamped on documents this engine produces.
const CurrentVersion = "1.0.0"

// ExportMetadata is the header block of an export document.
type ExportMetadata struct {
	Version      string             `json:"version"`
	ExportedAt   time.Time          `json:"exportedAt"`
	UserID       string             `json:"userId"`
	TotalItems   int                `json:"totalItems"`
	EntityCounts map[EntityType]int `json:"entityCounts"`
}

// ExportedData is the wire format consumed and produced by the engine.
type ExportedData struct {
	Metadata ExportMetadata          `json:"metadata"`
	Data     map[EntityType][]Entity `json:"data"`
}

// exportedDataWire mirrors ExportedData with raw collections for decoding.
type exportedDataWire struct {
	Metadata ExportMetadata                   `json:"metadata"`
	Data     map[EntityType][]json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes each collection into its typed variant. Unknown
// collection keys are dropped; per-entity schema errors surface here as hard
// errors, so the validator decodes entity-by-entity instead of calling this
// on untrusted input.
func (d *ExportedData) UnmarshalJSON(raw []byte) error {
	var wire exportedDataWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	d.Metadata = wire.Metadata
	d.Data = make(map[EntityType][]Entity, len(wire.Data))
	for t, items := range wire.Data {
		if !t.IsValid() {
			continue
		}
		entities := make([]Entity, 0, len(items))
		for i, item := range items {
			e, err := DecodeEntity(t, item)
			if err != nil {
				return fmt.Errorf("data.%s[%d]: %w", t, i, err)
			}
			entities = append(entities, e)
		}
		d.Data[t] = entities
	}
	return nil
}

// TotalEntities counts the entities across every collection.
func (d *ExportedData) TotalEntities() int {
	n := 0
	for _, entities := range d.Data {
		n += len(entities)
	}
	return n
}
