// SPDX-License-Identifier: MIT

// Package model holds the pipeline's shared data types: transcript segments,
// relevant moments, keyframes and the final document payload. Adapters
// produce these; the orchestrator and session records consume them.
package model

import "encoding/json"

// TranscriptSegment is one utterance of the transcript.
// Segments in a transcript are sorted by StartSec and non-overlapping.
type TranscriptSegment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
	Speaker  string  `json:"speaker,omitempty"`
}

// Duration returns the segment length in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.EndSec - s.StartSec
}

// Transcript is the ordered segment list plus how it was produced.
type Transcript struct {
	Segments    []TranscriptSegment `json:"segments"`
	Language    string              `json:"language,omitempty"`
	AdapterUsed string              `json:"adapter_used,omitempty"`
}

// Empty reports whether the transcript carries no text at all.
func (t Transcript) Empty() bool {
	for _, seg := range t.Segments {
		if seg.Text != "" {
			return false
		}
	}
	return true
}

// FullText joins all segment texts with single spaces.
func (t Transcript) FullText() string {
	var total int
	for _, seg := range t.Segments {
		total += len(seg.Text) + 1
	}
	buf := make([]byte, 0, total)
	for _, seg := range t.Segments {
		if seg.Text == "" {
			continue
		}
		if len(buf) > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, seg.Text...)
	}
	return string(buf)
}

// Moment is a [start, end] interval the relevance pass deems worth
// visualizing. After normalization, moments are sorted, inside
// [0, duration], merged when closer than the merge gap, and at least the
// minimum span long (unless Override is set).
type Moment struct {
	StartSec      float64   `json:"start_sec"`
	EndSec        float64   `json:"end_sec"`
	Reason        string    `json:"reason"`
	KeyTimestamps []float64 `json:"key_timestamps,omitempty"`
	Override      bool      `json:"override,omitempty"`
}

// Duration returns the moment length in seconds.
func (m Moment) Duration() float64 {
	return m.EndSec - m.StartSec
}

// Keyframe is one still image extracted from the original source.
type Keyframe struct {
	Index        int             `json:"index"`
	TimestampSec float64         `json:"timestamp_sec"`
	Path         string          `json:"path"` // relative to the session directory
	Label        string          `json:"label,omitempty"`
	JSONSidecar  json.RawMessage `json:"json_sidecar,omitempty"`
}

// Document is the final generated payload.
type Document struct {
	Format  string `json:"format"` // "markdown" or "json"
	Content []byte `json:"content"`
}
