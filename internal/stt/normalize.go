// SPDX-License-Identifier: MIT

package stt

import (
	"sort"
	"strings"

	"github.com/reeldoc/reeldoc/internal/model"
)

// Normalize repairs adapter output so segments satisfy the transcript
// invariants: sorted by start, non-overlapping, end strictly after start.
// Backward segments are flipped, identical-text neighbors that touch or
// overlap are merged, remaining overlaps are split at the midpoint. Segments
// with no text are dropped.
func Normalize(segments []model.TranscriptSegment) []model.TranscriptSegment {
	if len(segments) == 0 {
		return nil
	}

	out := make([]model.TranscriptSegment, 0, len(segments))
	for _, s := range segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.StartSec < 0 {
			s.StartSec = 0
		}
		if s.EndSec < s.StartSec {
			s.StartSec, s.EndSec = s.EndSec, s.StartSec
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartSec != out[j].StartSec {
			return out[i].StartSec < out[j].StartSec
		}
		return out[i].EndSec < out[j].EndSec
	})

	out = mergeRepeats(out)
	out = splitOverlaps(out)

	// Zero-length spans cannot carry the end > start invariant.
	kept := out[:0]
	for _, s := range out {
		if s.EndSec > s.StartSec {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// mergeRepeats collapses hallucinated whisper repeats: consecutive segments
// with identical text that touch or overlap become one span.
func mergeRepeats(segments []model.TranscriptSegment) []model.TranscriptSegment {
	merged := segments[:1]
	for _, s := range segments[1:] {
		last := &merged[len(merged)-1]
		if s.Text == last.Text && s.StartSec <= last.EndSec {
			if s.EndSec > last.EndSec {
				last.EndSec = s.EndSec
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// splitOverlaps moves the boundary of each overlapping pair to the overlap
// midpoint. A segment swallowed whole by its predecessor is clipped to zero
// length and dropped by the caller.
func splitOverlaps(segments []model.TranscriptSegment) []model.TranscriptSegment {
	for i := 1; i < len(segments); i++ {
		prev := &segments[i-1]
		cur := &segments[i]
		if cur.StartSec >= prev.EndSec {
			continue
		}
		mid := (cur.StartSec + prev.EndSec) / 2
		prev.EndSec = mid
		cur.StartSec = mid
		if cur.EndSec < cur.StartSec {
			cur.EndSec = cur.StartSec
		}
	}
	return segments
}
