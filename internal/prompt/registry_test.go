// SPDX-License-Identifier: MIT

package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecord = `id: general_doc
name: General Documentation
description: Structured documentation from arbitrary recordings.
model: quality
output_format: markdown
system_instruction: |
  You document the video titled ${title}.
guidelines:
  - Write in ${language}.
`

func writePromptFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestRegistry_LoadAndGet(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "general_doc.yaml", sampleRecord)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())
	assert.Equal(t, 1, reg.Len())

	rec, err := reg.Get("general_doc")
	require.NoError(t, err)
	assert.Equal(t, "General Documentation", rec.DisplayName)
	assert.Equal(t, PreferQuality, rec.ModelPreference)
	assert.Equal(t, FormatMarkdown, rec.OutputFormat)
	assert.Contains(t, rec.SystemInstruction, "${title}")
	assert.Equal(t, []string{"Write in ${language}."}, rec.Guidelines)
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	require.NoError(t, reg.Load())

	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_SkipsNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "general_doc.yaml", sampleRecord)
	writePromptFile(t, dir, "README.md", "# not a prompt")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "drafts"), 0o750))

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "minimal.yaml", "id: minimal\nsystem_instruction: do the thing\n")

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	rec, err := reg.Get("minimal")
	require.NoError(t, err)
	assert.Equal(t, PreferQuality, rec.ModelPreference)
	assert.Equal(t, FormatMarkdown, rec.OutputFormat)
}

func TestRegistry_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "system_instruction: x\n"},
		{"bad id", "id: Not Valid!\nsystem_instruction: x\n"},
		{"missing instruction", "id: ok\n"},
		{"bad model", "id: ok\nmodel: enormous\nsystem_instruction: x\n"},
		{"bad format", "id: ok\noutput_format: pdf\nsystem_instruction: x\n"},
		{"unknown field", "id: ok\nsystem_instruction: x\ntemperature: 1\n"},
		{"two documents", "id: ok\nsystem_instruction: x\n---\nid: other\nsystem_instruction: y\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writePromptFile(t, dir, "bad.yaml", tt.content)

			reg := NewRegistry(dir)
			assert.Error(t, reg.Load())
		})
	}
}

func TestRegistry_RejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "a.yaml", "id: dup\nsystem_instruction: x\n")
	writePromptFile(t, dir, "b.yaml", "id: dup\nsystem_instruction: y\n")

	reg := NewRegistry(dir)
	assert.Error(t, reg.Load())
}

func TestRegistry_FailedReloadKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "general_doc.yaml", sampleRecord)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	// Corrupt the file, then reload: old records must survive.
	writePromptFile(t, dir, "general_doc.yaml", "id: broken\n")
	require.Error(t, reg.Reload())

	rec, err := reg.Get("general_doc")
	require.NoError(t, err)
	assert.Equal(t, "General Documentation", rec.DisplayName)
}

func TestRegistry_ReloadSwapsAtomically(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "general_doc.yaml", sampleRecord)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	held, err := reg.Get("general_doc")
	require.NoError(t, err)

	// Replace the set with a different record.
	require.NoError(t, os.Remove(filepath.Join(dir, "general_doc.yaml")))
	writePromptFile(t, dir, "bug_report.yaml", "id: bug_report\nsystem_instruction: report bugs\n")
	require.NoError(t, reg.Reload())

	_, err = reg.Get("general_doc")
	assert.ErrorIs(t, err, ErrNotFound)

	// The previously acquired record is still intact for its holder.
	assert.Equal(t, "General Documentation", held.DisplayName)

	rec, err := reg.Get("bug_report")
	require.NoError(t, err)
	assert.Equal(t, "report bugs", rec.SystemInstruction)
}

func TestRegistry_List(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "z.yaml", "id: viral_clip_gen\nsystem_instruction: x\n")
	writePromptFile(t, dir, "a.yaml", "id: bug_report\nsystem_instruction: y\n")

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "bug_report", list[0].ID)
	assert.Equal(t, "viral_clip_gen", list[1].ID)
}

func TestRegistry_LoadMissingDir(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, reg.Load())
}
