// SPDX-License-Identifier: MIT

// Package prompt loads mode-keyed prompt records from YAML and resolves their
// templates. Records are immutable once loaded; Reload swaps the whole set
// atomically so in-flight readers keep the record they already hold.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Model preference values.
const (
	PreferFast    = "fast"
	PreferQuality = "quality"
)

// Output format values.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

var validRecordID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Record is one mode's prompt definition. The YAML keys follow the on-disk
// prompt file format: id, name, description, model, system_instruction,
// output_format, guidelines.
type Record struct {
	ID                string   `yaml:"id" json:"id"`
	DisplayName       string   `yaml:"name" json:"display_name"`
	Description       string   `yaml:"description" json:"description"`
	ModelPreference   string   `yaml:"model" json:"model_preference"`
	SystemInstruction string   `yaml:"system_instruction" json:"system_instruction"`
	OutputFormat      string   `yaml:"output_format" json:"output_format"`
	Guidelines        []string `yaml:"guidelines" json:"guidelines"`
}

// normalize fills defaults for optional fields.
func (r *Record) normalize() {
	if r.ModelPreference == "" {
		r.ModelPreference = PreferQuality
	}
	if r.OutputFormat == "" {
		r.OutputFormat = FormatMarkdown
	}
}

// Validate checks the record after normalization.
func (r *Record) Validate() error {
	if !validRecordID.MatchString(r.ID) {
		return fmt.Errorf("prompt record has invalid id: %q", r.ID)
	}
	if r.SystemInstruction == "" {
		return fmt.Errorf("prompt record %s: system_instruction is empty", r.ID)
	}
	switch r.ModelPreference {
	case PreferFast, PreferQuality:
	default:
		return fmt.Errorf("prompt record %s: invalid model_preference %q", r.ID, r.ModelPreference)
	}
	switch r.OutputFormat {
	case FormatMarkdown, FormatJSON:
	default:
		return fmt.Errorf("prompt record %s: invalid output_format %q", r.ID, r.OutputFormat)
	}
	return nil
}

// Resolved holds a record's template strings after variable substitution.
type Resolved struct {
	SystemInstruction string
	Guidelines        []string
}

// Resolve substitutes ${name} placeholders in the system instruction and
// guidelines. The record itself is never mutated.
func (r *Record) Resolve(vars map[string]string) Resolved {
	out := Resolved{
		SystemInstruction: Interpolate(r.SystemInstruction, vars),
	}
	if len(r.Guidelines) > 0 {
		out.Guidelines = make([]string, len(r.Guidelines))
		for i, g := range r.Guidelines {
			out.Guidelines[i] = Interpolate(g, vars)
		}
	}
	return out
}

// SystemText renders the resolved record as a single system prompt: the
// instruction followed by the guidelines as a bulleted block.
func (r Resolved) SystemText() string {
	if len(r.Guidelines) == 0 {
		return r.SystemInstruction
	}
	var b strings.Builder
	b.WriteString(r.SystemInstruction)
	b.WriteString("\n\nGuidelines:\n")
	for i, g := range r.Guidelines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(g)
	}
	return b.String()
}
