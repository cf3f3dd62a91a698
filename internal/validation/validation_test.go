package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/types"
)

// parseDoc unmarshals a JSON document the way the import pipeline does.
func parseDoc(t *testing.T, doc string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		t.Fatalf("invalid test document: %v", err)
	}
	return raw
}

const validDoc = `{
	"metadata": {"version": "1.0.0", "exportedAt": "2026-01-02T03:04:05Z", "userId": "u1", "totalItems": 3, "entityCounts": {"tasks": 2, "goals": 1}},
	"data": {
		"goals": [{"id": "g1", "title": "Health"}],
		"tasks": [
			{"id": "t1", "title": "Run 5k", "projectId": "p1"},
			{"id": "t2", "title": "Stretch"}
		]
	}
}`

func TestValidateDocumentHappyPath(t *testing.T) {
	res := ValidateDocument(parseDoc(t, validDoc))
	require.True(t, res.IsValid)
	assert.Empty(t, res.Issues)
	assert.Len(t, res.Entities[types.TypeTask], 2)
	assert.Len(t, res.Entities[types.TypeGoal], 1)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "1.0.0", res.Metadata.Version)
	assert.Equal(t, "u1", res.Metadata.UserID)
}

func TestValidateDocumentShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing metadata", `{"data": {"tasks": [{"id":"t1","title":"x"}]}}`},
		{"missing data", `{"metadata": {"version":"1.0.0"}}`},
		{"missing version", `{"metadata": {}, "data": {"tasks": [{"id":"t1","title":"x"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateDocument(parseDoc(t, tt.doc))
			assert.False(t, res.IsValid)
			assert.NotEmpty(t, res.Errors())
		})
	}
}

func TestUnsupportedVersionIsWarningOnly(t *testing.T) {
	doc := `{
		"metadata": {"version": "2.5.0"},
		"data": {"goals": [{"id": "g1"}]}
	}`
	res := ValidateDocument(parseDoc(t, doc))
	assert.True(t, res.IsValid, "forward-compatible reads are allowed")
	require.Len(t, res.Issues, 1)
	assert.Equal(t, KindSchemaVersion, res.Issues[0].Kind)
	assert.Equal(t, SeverityWarning, res.Issues[0].Severity)
}

func TestNonArrayCollectionPoisonsOnlyThatType(t *testing.T) {
	doc := `{
		"metadata": {"version": "1.0.0"},
		"data": {
			"tasks": {"id": "t1"},
			"goals": [{"id": "g1"}]
		}
	}`
	res := ValidateDocument(parseDoc(t, doc))
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Entities[types.TypeTask])
	assert.Len(t, res.Entities[types.TypeGoal], 1)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, KindInvalidType, res.Issues[0].Kind)
	assert.Equal(t, types.TypeTask, res.Issues[0].EntityType)
}

func TestEntityQuarantine(t *testing.T) {
	doc := `{
		"metadata": {"version": "1.0.0"},
		"data": {
			"tasks": [
				{"id": "t1", "title": "keep me"},
				{"id": "t2"},
				{"title": "no id"},
				{"id": "t3", "title": "also kept"}
			]
		}
	}`
	res := ValidateDocument(parseDoc(t, doc))
	assert.True(t, res.IsValid)
	require.Len(t, res.Entities[types.TypeTask], 2)
	assert.Equal(t, "t1", res.Entities[types.TypeTask][0].EntityID())
	assert.Equal(t, "t3", res.Entities[types.TypeTask][1].EntityID())
	// Both dropped entities are still reported.
	assert.Len(t, res.Errors(), 2)
}

func TestMoodValueRules(t *testing.T) {
	doc := `{
		"metadata": {"version": "1.0.0"},
		"data": {
			"moods": [
				{"id": "m1", "value": 7},
				{"id": "m2", "value": 14},
				{"id": "m3", "value": "happy"}
			]
		}
	}`
	res := ValidateDocument(parseDoc(t, doc))
	// m1 clean, m2 kept with warning, m3 quarantined.
	require.Len(t, res.Entities[types.TypeMood], 2)
	assert.Equal(t, "m1", res.Entities[types.TypeMood][0].EntityID())
	assert.Equal(t, "m2", res.Entities[types.TypeMood][1].EntityID())

	var warnings, errors int
	for _, is := range res.Issues {
		switch is.Severity {
		case SeverityWarning:
			warnings++
		case SeverityError:
			errors++
		}
	}
	assert.Equal(t, 1, warnings)
	assert.Equal(t, 1, errors)
}

func TestFocusSessionAndPersonRules(t *testing.T) {
	doc := `{
		"metadata": {"version": "1.0.0"},
		"data": {
			"focusSessions": [
				{"id": "f1", "duration": 25, "tasks": ["t1"]},
				{"id": "f2", "tasks": []},
				{"id": "f3", "duration": 10}
			],
			"people": [
				{"id": "pe1", "name": "Ada"},
				{"id": "pe2"}
			]
		}
	}`
	res := ValidateDocument(parseDoc(t, doc))
	assert.Len(t, res.Entities[types.TypeFocusSession], 1)
	assert.Len(t, res.Entities[types.TypePerson], 1)
}

func TestPortfolioInvestmentRules(t *testing.T) {
	doc := `{
		"metadata": {"version": "1.0.0"},
		"data": {
			"portfolios": [
				{"id": "pf1", "name": "ISA", "investments": [{"id": "inv1", "symbol": "VWRL"}, {"symbol": "AAPL"}]},
				{"id": "pf2"}
			]
		}
	}`
	res := ValidateDocument(parseDoc(t, doc))
	// pf1 kept (missing investment id is only a warning), pf2 dropped (no name).
	require.Len(t, res.Entities[types.TypePortfolio], 1)
	assert.Equal(t, "pf1", res.Entities[types.TypePortfolio][0].EntityID())

	var sawInvestmentWarning bool
	for _, is := range res.Issues {
		if is.Kind == KindMissingField && is.Severity == SeverityWarning {
			sawInvestmentWarning = true
		}
	}
	assert.True(t, sawInvestmentWarning)
}

func TestZeroSurvivorsInvalidatesImport(t *testing.T) {
	doc := `{
		"metadata": {"version": "1.0.0"},
		"data": {"tasks": [{"id": "t1"}]}
	}`
	res := ValidateDocument(parseDoc(t, doc))
	assert.False(t, res.IsValid)
}
