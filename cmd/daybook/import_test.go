package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daybookhq/daybook/internal/conflict"
	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/validation"
)

func TestIssuePrefixBySeverity(t *testing.T) {
	assert.Equal(t, "Error", issuePrefix(validation.SeverityError))
	assert.Equal(t, "Warning", issuePrefix(validation.SeverityWarning))
}

func TestNormalizeStrategy(t *testing.T) {
	assert.Equal(t, string(storage.StrategySkipExisting), normalizeStrategy("skip"))
	assert.Equal(t, "replace", normalizeStrategy("replace"))
	assert.Equal(t, "merge", normalizeStrategy("merge"))
}

func TestNormalizeResolution(t *testing.T) {
	assert.Equal(t, string(conflict.ResolutionCreateNew), normalizeResolution("create-new"))
	assert.Equal(t, "skip", normalizeResolution("skip"))
}
