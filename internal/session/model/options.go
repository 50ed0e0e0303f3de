// SPDX-License-Identifier: MIT

package model

// Defaults for per-run options left at their zero value.
const (
	DefaultMaxKeyframes  = 25
	DefaultMergeGapSec   = 10.0
	DefaultMinSegmentSec = 5.0
)

// STT preferences steer transcription adapter selection.
const (
	STTAuto     = "auto"
	STTFast     = "fast"
	STTAccurate = "accurate"
)

// ValidSTTPreference reports whether p is a known preference.
func ValidSTTPreference(p string) bool {
	switch p {
	case STTAuto, STTFast, STTAccurate:
		return true
	}
	return false
}

// Options are the per-run knobs recorded in the session's options block.
type Options struct {
	MaxKeyframes    int      `json:"max_keyframes,omitempty"`
	SegmentPipeline bool     `json:"segment_pipeline,omitempty"`
	MergeGapSec     float64  `json:"merge_gap_sec,omitempty"`
	MinSegmentSec   float64  `json:"min_segment_sec,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Attendees       []string `json:"attendees,omitempty"`
}

// WithDefaults returns a copy with zero numeric knobs replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.MaxKeyframes <= 0 {
		o.MaxKeyframes = DefaultMaxKeyframes
	}
	if o.MergeGapSec <= 0 {
		o.MergeGapSec = DefaultMergeGapSec
	}
	if o.MinSegmentSec <= 0 {
		o.MinSegmentSec = DefaultMinSegmentSec
	}
	return o
}

// Clone returns a copy that owns its slices.
func (o Options) Clone() Options {
	o.Keywords = append([]string(nil), o.Keywords...)
	o.Attendees = append([]string(nil), o.Attendees...)
	return o
}
