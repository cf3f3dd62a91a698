// Package validation checks the document shape and per-entity schema of an
// untrusted export document. Invalid individual entities are quarantined
// (dropped with a reported issue) without failing the whole import.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/daybookhq/daybook/internal/types"
)

// IssueKind classifies a validation issue.
type IssueKind string

// Issue kinds.
const (
	KindMissingField  IssueKind = "missing_field"
	KindInvalidType   IssueKind = "invalid_type"
	KindSchemaVersion IssueKind = "schema_version"
)

// Severity of a validation issue. Entities with only warnings are kept;
// any error-severity issue quarantines the entity.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue describes one problem with the document or a single entity.
type Issue struct {
	Kind       IssueKind        `json:"kind"`
	EntityType types.EntityType `json:"entityType,omitempty"`
	EntityID   string           `json:"entityId,omitempty"`
	Field      string           `json:"field,omitempty"`
	Message    string           `json:"message"`
	Severity   Severity         `json:"severity"`
}

// Result is the validator's output: the surviving entities per type, every
// issue found, and the parsed metadata.
type Result struct {
	IsValid  bool
	Issues   []Issue
	Metadata *types.ExportMetadata
	Entities map[types.EntityType][]types.Entity
}

// Errors returns only the error-severity issues.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// ValidateDocument validates a raw parsed export document. The input is the
// result of unmarshaling the wire JSON into map[string]any; callers never
// hand the engine a typed document directly, because per-entity failures must
// quarantine a single entity rather than abort decoding.
func ValidateDocument(raw map[string]any) *Result {
	res := &Result{
		Entities: make(map[types.EntityType][]types.Entity),
	}
	shapeOK := true

	metaRaw, ok := raw["metadata"].(map[string]any)
	if !ok {
		res.addIssue(Issue{
			Kind:     KindMissingField,
			Field:    "metadata",
			Message:  "document must contain a metadata object",
			Severity: SeverityError,
		})
		shapeOK = false
	} else {
		if !validateMetadata(res, metaRaw) {
			shapeOK = false
		}
	}

	dataRaw, ok := raw["data"].(map[string]any)
	if !ok {
		res.addIssue(Issue{
			Kind:     KindMissingField,
			Field:    "data",
			Message:  "document must contain a data object",
			Severity: SeverityError,
		})
		shapeOK = false
	} else {
		validateCollections(res, dataRaw)
	}

	survived := 0
	for _, entities := range res.Entities {
		survived += len(entities)
	}
	res.IsValid = shapeOK && survived > 0
	return res
}

func (r *Result) addIssue(is Issue) {
	r.Issues = append(r.Issues, is)
}

// validateMetadata parses the metadata block. A missing version is a
// document-shape error; an unrecognized version is only a warning so newer
// exports stay readable.
func validateMetadata(res *Result, metaRaw map[string]any) bool {
	ok := true

	version, hasVersion := metaRaw["version"].(string)
	if !hasVersion || version == "" {
		res.addIssue(Issue{
			Kind:     KindMissingField,
			Field:    "metadata.version",
			Message:  "metadata.version is required",
			Severity: SeverityError,
		})
		ok = false
	} else if !types.SupportedVersions[version] {
		res.addIssue(Issue{
			Kind:     KindSchemaVersion,
			Field:    "metadata.version",
			Message:  fmt.Sprintf("unsupported export version %q; importing anyway", version),
			Severity: SeverityWarning,
		})
	}

	meta := &types.ExportMetadata{Version: version}
	// Best-effort decode of the remaining metadata fields; their absence
	// never blocks an import.
	if blob, err := json.Marshal(metaRaw); err == nil {
		_ = json.Unmarshal(blob, meta)
	}
	res.Metadata = meta
	return ok
}

func validateCollections(res *Result, dataRaw map[string]any) {
	for _, t := range types.AllEntityTypes() {
		value, present := dataRaw[string(t)]
		if !present {
			continue
		}
		items, ok := value.([]any)
		if !ok {
			// A non-array collection poisons the whole type, not the import.
			res.addIssue(Issue{
				Kind:       KindInvalidType,
				EntityType: t,
				Field:      string(t),
				Message:    fmt.Sprintf("data.%s must be an array", t),
				Severity:   SeverityError,
			})
			continue
		}
		for i, item := range items {
			validateEntity(res, t, i, item)
		}
	}
}

// validateEntity applies the per-type rules to one raw entity, decodes it
// into its typed variant, and appends it to the surviving set unless any
// error-severity issue was found.
func validateEntity(res *Result, t types.EntityType, index int, item any) {
	obj, ok := item.(map[string]any)
	if !ok {
		res.addIssue(Issue{
			Kind:       KindInvalidType,
			EntityType: t,
			Message:    fmt.Sprintf("data.%s[%d] is not an object", t, index),
			Severity:   SeverityError,
		})
		return
	}

	id, _ := obj["id"].(string)
	issues := checkRequiredFields(t, id, obj)

	if id == "" {
		issues = append(issues, Issue{
			Kind:       KindMissingField,
			EntityType: t,
			Field:      "id",
			Message:    fmt.Sprintf("data.%s[%d] is missing a string id", t, index),
			Severity:   SeverityError,
		})
	}

	hasError := false
	for _, is := range issues {
		if is.Severity == SeverityError {
			hasError = true
		}
	}

	var entity types.Entity
	if !hasError {
		blob, err := json.Marshal(obj)
		if err == nil {
			entity, err = types.DecodeEntity(t, blob)
		}
		if err != nil {
			issues = append(issues, Issue{
				Kind:       KindInvalidType,
				EntityType: t,
				EntityID:   id,
				Message:    fmt.Sprintf("entity does not match the %s schema: %v", t, err),
				Severity:   SeverityError,
			})
			hasError = true
		}
	}

	res.Issues = append(res.Issues, issues...)
	if !hasError {
		res.Entities[t] = append(res.Entities[t], entity)
	}
}

// checkRequiredFields applies the type-specific schema rules.
func checkRequiredFields(t types.EntityType, id string, obj map[string]any) []Issue {
	var issues []Issue
	missing := func(field, msg string) {
		issues = append(issues, Issue{
			Kind: KindMissingField, EntityType: t, EntityID: id,
			Field: field, Message: msg, Severity: SeverityError,
		})
	}
	badType := func(field, msg string, sev Severity) {
		issues = append(issues, Issue{
			Kind: KindInvalidType, EntityType: t, EntityID: id,
			Field: field, Message: msg, Severity: sev,
		})
	}

	switch t {
	case types.TypeTask:
		if s, ok := obj["title"].(string); !ok || s == "" {
			missing("title", "task requires a non-empty string title")
		}
	case types.TypeMood:
		v, ok := toNumber(obj["value"])
		if !ok {
			missing("value", "mood requires a numeric value")
		} else if v < 1 || v > 10 {
			badType("value", fmt.Sprintf("mood value %v is outside the 1-10 scale", v), SeverityWarning)
		}
	case types.TypeFocusSession:
		if _, ok := toNumber(obj["duration"]); !ok {
			missing("duration", "focus session requires a numeric duration")
		}
		if _, ok := obj["tasks"].([]any); !ok {
			missing("tasks", "focus session requires a tasks array")
		}
	case types.TypePerson:
		if s, ok := obj["name"].(string); !ok || s == "" {
			missing("name", "person requires a name")
		}
	case types.TypePortfolio:
		if s, ok := obj["name"].(string); !ok || s == "" {
			missing("name", "portfolio requires a name")
		}
		if invRaw, present := obj["investments"]; present {
			invs, ok := invRaw.([]any)
			if !ok {
				badType("investments", "portfolio investments must be an array", SeverityError)
				break
			}
			for i, inv := range invs {
				invObj, ok := inv.(map[string]any)
				if !ok {
					badType("investments", fmt.Sprintf("investments[%d] is not an object", i), SeverityError)
					continue
				}
				if s, ok := invObj["id"].(string); !ok || s == "" {
					// Investments without IDs are tolerated but flagged.
					issues = append(issues, Issue{
						Kind: KindMissingField, EntityType: t, EntityID: id,
						Field:    fmt.Sprintf("investments[%d].id", i),
						Message:  "investment has no id",
						Severity: SeverityWarning,
					})
				}
			}
		}
	}
	return issues
}

// toNumber accepts the numeric shapes encoding/json produces from untyped
// unmarshaling.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	}
	return 0, false
}
