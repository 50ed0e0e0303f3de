// SPDX-License-Identifier: MIT

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremodel "github.com/reeldoc/reeldoc/internal/model"
)

func TestSource_Validate(t *testing.T) {
	assert.NoError(t, Source{Kind: SourceLocal, Path: "/tmp/a.mp4"}.Validate())
	assert.NoError(t, Source{Kind: SourceRemote, URI: "https://example.com/a.mp4"}.Validate())

	assert.Error(t, Source{Kind: SourceLocal}.Validate())
	assert.Error(t, Source{Kind: SourceRemote}.Validate())
	assert.Error(t, Source{Kind: "ftp", Path: "/x"}.Validate())
	assert.Error(t, Source{}.Validate())
}

func TestSession_CloneIsDeep(t *testing.T) {
	orig := &Session{
		ID:     "abc",
		Status: StatusRunning,
		Error:  &ErrorRecord{Kind: "Internal", Message: "boom"},
		ArtifactPaths: map[string]string{
			"doc": "doc.md",
		},
		DocPayload: &coremodel.Document{Format: "markdown", Content: []byte("# Hi")},
		TranscriptSegments: []coremodel.TranscriptSegment{
			{StartSec: 0, EndSec: 2, Text: "hello"},
		},
		Keyframes: []coremodel.Keyframe{
			{Index: 0, TimestampSec: 1.5, Path: "frames/frame_0_t1.50s.jpg", JSONSidecar: []byte(`{"a":1}`)},
		},
		Options: Options{Keywords: []string{"deploy"}},
	}

	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.Error.Message = "changed"
	cp.ArtifactPaths["doc"] = "other.md"
	cp.DocPayload.Content[0] = 'X'
	cp.TranscriptSegments[0].Text = "changed"
	cp.Keyframes[0].JSONSidecar[1] = 'X'
	cp.Options.Keywords[0] = "changed"

	assert.Equal(t, "boom", orig.Error.Message)
	assert.Equal(t, "doc.md", orig.ArtifactPaths["doc"])
	assert.Equal(t, byte('#'), orig.DocPayload.Content[0])
	assert.Equal(t, "hello", orig.TranscriptSegments[0].Text)
	assert.Equal(t, byte('"'), orig.Keyframes[0].JSONSidecar[1])
	assert.Equal(t, "deploy", orig.Options.Keywords[0])
}

func TestSession_CloneNil(t *testing.T) {
	var s *Session
	assert.Nil(t, s.Clone())
}

func TestSession_Summary(t *testing.T) {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(30 * time.Second)
	s := &Session{
		ID:          "abc",
		CreatedAt:   created,
		Mode:        "general_doc",
		Title:       "Sprint demo",
		Status:      StatusRunning,
		Progress:    35,
		StageLabel:  "transcribing",
		LastUpdated: updated,
		DocPayload:  &coremodel.Document{Format: "markdown"},
	}

	sum := s.Summary()
	assert.Equal(t, Summary{
		ID:          "abc",
		CreatedAt:   created,
		Mode:        "general_doc",
		Title:       "Sprint demo",
		Status:      StatusRunning,
		Progress:    35,
		StageLabel:  "transcribing",
		LastUpdated: updated,
	}, sum)
}

func TestFilter_Matches(t *testing.T) {
	s := &Session{Status: StatusCompleted, Mode: "bug_report"}

	assert.True(t, Filter{}.Matches(s))
	assert.True(t, Filter{Status: StatusCompleted}.Matches(s))
	assert.True(t, Filter{Mode: "bug_report"}.Matches(s))
	assert.True(t, Filter{Status: StatusCompleted, Mode: "bug_report"}.Matches(s))

	assert.False(t, Filter{Status: StatusRunning}.Matches(s))
	assert.False(t, Filter{Mode: "general_doc"}.Matches(s))
	assert.False(t, Filter{Status: StatusCompleted, Mode: "general_doc"}.Matches(s))
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	assert.Equal(t, DefaultMaxKeyframes, o.MaxKeyframes)
	assert.Equal(t, DefaultMergeGapSec, o.MergeGapSec)
	assert.Equal(t, DefaultMinSegmentSec, o.MinSegmentSec)
	assert.False(t, o.SegmentPipeline)

	o = Options{MaxKeyframes: 10, MergeGapSec: 3, MinSegmentSec: 1}.WithDefaults()
	assert.Equal(t, 10, o.MaxKeyframes)
	assert.Equal(t, 3.0, o.MergeGapSec)
	assert.Equal(t, 1.0, o.MinSegmentSec)
}

func TestValidSTTPreference(t *testing.T) {
	assert.True(t, ValidSTTPreference(STTAuto))
	assert.True(t, ValidSTTPreference(STTFast))
	assert.True(t, ValidSTTPreference(STTAccurate))
	assert.False(t, ValidSTTPreference(""))
	assert.False(t, ValidSTTPreference("best"))
}

func TestIsSafeID(t *testing.T) {
	assert.True(t, IsSafeID("abc123"))
	assert.True(t, IsSafeID("a"))
	assert.True(t, IsSafeID("Session-42_b"))

	assert.False(t, IsSafeID(""))
	assert.False(t, IsSafeID("-leading-dash"))
	assert.False(t, IsSafeID("_leading_underscore"))
	assert.False(t, IsSafeID("has space"))
	assert.False(t, IsSafeID("dot.dot"))
	assert.False(t, IsSafeID("../escape"))
	assert.False(t, IsSafeID("a/b"))
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.Len(t, a, 32)
	assert.True(t, IsSafeID(a))
	assert.NotEqual(t, a, b)
}
