// SPDX-License-Identifier: MIT

package stt

import (
	"fmt"
	"io"
	"math"

	"github.com/reeldoc/reeldoc/internal/model"
)

// WriteSRT renders segments as SubRip subtitles with 1-based counters and
// HH:MM:SS,mmm ranges. Segments are written in the order given; callers pass
// normalized transcripts.
func WriteSRT(w io.Writer, segments []model.TranscriptSegment) error {
	n := 0
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		n++
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			n, srtTimestamp(s.StartSec), srtTimestamp(s.EndSec), s.Text)
		if err != nil {
			return fmt.Errorf("write srt cue %d: %w", n, err)
		}
	}
	return nil
}

func srtTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
