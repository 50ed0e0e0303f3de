// SPDX-License-Identifier: MIT

// Package model defines the session record and its lifecycle. A session is
// the top-level unit of work: it is created by a caller, mutated only
// through the session manager, and serialized as session.json inside the
// session's artifact directory.
package model

import (
	"fmt"
	"time"

	coremodel "github.com/reeldoc/reeldoc/internal/model"
)

// Source kinds. The pipeline only ever reads local files; remote descriptors
// are accepted at submission so a host can fetch them before running.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Source points at the input video.
type Source struct {
	Kind string `json:"kind"`
	Path string `json:"path,omitempty"` // local file path
	URI  string `json:"uri,omitempty"`  // remote descriptor, never fetched by the core
}

// Validate checks the kind and its required field.
func (s Source) Validate() error {
	switch s.Kind {
	case SourceLocal:
		if s.Path == "" {
			return fmt.Errorf("local source requires a path")
		}
	case SourceRemote:
		if s.URI == "" {
			return fmt.Errorf("remote source requires a uri")
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
	return nil
}

// ErrorRecord captures why a session ended in failed.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Metadata is the caller-supplied description of a new session.
type Metadata struct {
	Mode          string
	Title         string
	Language      string
	STTPreference string
	Source        Source
	Options       Options
}

// Session is the store's source of truth for one unit of work.
type Session struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Mode          string    `json:"mode"`
	Title         string    `json:"title,omitempty"`
	Language      string    `json:"language,omitempty"`
	STTPreference string    `json:"stt_preference"`
	Source        Source    `json:"source"`
	Options       Options   `json:"options"`

	Status      Status       `json:"status"`
	Progress    int          `json:"progress"`
	StageLabel  string       `json:"stage_label,omitempty"`
	Error       *ErrorRecord `json:"error,omitempty"`
	LastUpdated time.Time    `json:"last_updated"`

	ArtifactPaths      map[string]string             `json:"artifact_paths,omitempty"`
	DocPayload         *coremodel.Document           `json:"doc_payload,omitempty"`
	TranscriptSegments []coremodel.TranscriptSegment `json:"transcript_segments,omitempty"`
	Keyframes          []coremodel.Keyframe          `json:"keyframes,omitempty"`
	STTAdapterUsed     string                        `json:"stt_adapter_used,omitempty"`
}

// Clone returns a deep copy. Stores and caches hand out clones so callers
// never alias a live record.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Error != nil {
		e := *s.Error
		cp.Error = &e
	}
	if s.ArtifactPaths != nil {
		cp.ArtifactPaths = make(map[string]string, len(s.ArtifactPaths))
		for k, v := range s.ArtifactPaths {
			cp.ArtifactPaths[k] = v
		}
	}
	if s.DocPayload != nil {
		d := *s.DocPayload
		d.Content = append([]byte(nil), s.DocPayload.Content...)
		cp.DocPayload = &d
	}
	cp.TranscriptSegments = append([]coremodel.TranscriptSegment(nil), s.TranscriptSegments...)
	if s.Keyframes != nil {
		cp.Keyframes = make([]coremodel.Keyframe, len(s.Keyframes))
		for i, kf := range s.Keyframes {
			kf.JSONSidecar = append([]byte(nil), kf.JSONSidecar...)
			cp.Keyframes[i] = kf
		}
	}
	cp.Options = s.Options.Clone()
	return &cp
}

// Touch advances LastUpdated. Every mutation goes through here.
func (s *Session) Touch(now time.Time) {
	s.LastUpdated = now
}

// Summary is the List projection of a session.
type Summary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Mode        string    `json:"mode"`
	Title       string    `json:"title,omitempty"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	StageLabel  string    `json:"stage_label,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Summary returns the list projection of the session.
func (s *Session) Summary() Summary {
	return Summary{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		Mode:        s.Mode,
		Title:       s.Title,
		Status:      s.Status,
		Progress:    s.Progress,
		StageLabel:  s.StageLabel,
		LastUpdated: s.LastUpdated,
	}
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status Status
	Mode   string
}

// Matches reports whether the session passes the filter.
func (f Filter) Matches(s *Session) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Mode != "" && s.Mode != f.Mode {
		return false
	}
	return true
}
