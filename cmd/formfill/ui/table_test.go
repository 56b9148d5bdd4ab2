package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable("Rows", []string{"Row", "Outcome"})
	table.AddRow("1", "complete")
	table.AddRow("2", "partial")

	view := table.View(DefaultStyles())
	t.Logf("View:\n%s", view)

	assert.Contains(t, view, "Rows")
	assert.Contains(t, view, "Outcome")
	assert.Contains(t, view, "complete")
	assert.Contains(t, view, "partial")
	assert.Less(t, strings.Index(view, "complete"), strings.Index(view, "partial"))
}

func TestSimpleTable_Empty(t *testing.T) {
	assert.Empty(t, NewSimpleTable("Nothing", []string{"A"}).View(DefaultStyles()))
}

func TestStatusKeepsText(t *testing.T) {
	s := NewStyles(LightTheme())
	for _, status := range []string{"complete", "partial", "failed", "skipped", "other"} {
		assert.Contains(t, s.Status(status), status)
	}
}

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark)

	t.Setenv("COLORFGBG", "0;15")
	t.Setenv("FORMFILL_DARK_MODE", "")
	assert.False(t, DetectTheme().IsDark)

	t.Setenv("FORMFILL_DARK_MODE", "1")
	assert.True(t, DetectTheme().IsDark)
}
