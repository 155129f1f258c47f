package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf, false)
	SetLevel(slog.LevelDebug)
	SetSections("solve")
	t.Cleanup(func() { SetSections("coherence") })

	Section("infer").Debug("hidden")
	Section("solve.trait").Debug("shown")
	DefaultLogger.Debug("also shown", "section", "solve")
	Section("infer").Warn("warnings always pass")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "also shown")
	assert.Contains(t, out, "warnings always pass")
}

func TestEnableSection(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf, true)
	SetLevel(slog.LevelDebug)
	SetSections()
	t.Cleanup(func() { SetSections("coherence") })

	Section("relate").Info("before")
	EnableSection("relate", "relate")
	Section("relate").Info("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), `"msg":"after"`)
}
