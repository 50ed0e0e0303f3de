// SPDX-License-Identifier: MIT

package relevance

import (
	"sort"
	"strings"

	"github.com/reeldoc/reeldoc/internal/model"
)

// Moment policy defaults.
const (
	DefaultMergeGapSec = 10
	DefaultMinSpanSec  = 5

	maxReasonWords = 10
)

// Normalize applies the moment invariants: clamp to [0, duration], drop
// backward and out-of-range spans, drop spans below minSpanSec unless the
// override flag is set, sort, and merge neighbours whose gap is below
// mergeGapSec. Key timestamps are filtered to their moment's span, sorted
// and deduplicated. Non-positive gap or span arguments fall back to the
// defaults. The input slice is not mutated.
func Normalize(moments []model.Moment, durationSec, mergeGapSec, minSpanSec float64) []model.Moment {
	if mergeGapSec <= 0 {
		mergeGapSec = DefaultMergeGapSec
	}
	if minSpanSec <= 0 {
		minSpanSec = DefaultMinSpanSec
	}

	kept := make([]model.Moment, 0, len(moments))
	for _, m := range moments {
		if m.StartSec < 0 {
			m.StartSec = 0
		}
		if m.EndSec > durationSec {
			m.EndSec = durationSec
		}
		if m.EndSec <= m.StartSec {
			continue
		}
		if m.Duration() < minSpanSec && !m.Override {
			continue
		}
		m.Reason = truncateWords(m.Reason, maxReasonWords)
		// Own the slice so merge appends cannot touch the caller's backing array.
		m.KeyTimestamps = append([]float64(nil), m.KeyTimestamps...)
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].StartSec != kept[j].StartSec {
			return kept[i].StartSec < kept[j].StartSec
		}
		return kept[i].EndSec < kept[j].EndSec
	})

	merged := kept[:1]
	for _, m := range kept[1:] {
		last := &merged[len(merged)-1]
		if m.StartSec-last.EndSec < mergeGapSec {
			if m.EndSec > last.EndSec {
				last.EndSec = m.EndSec
			}
			last.KeyTimestamps = append(last.KeyTimestamps, m.KeyTimestamps...)
			last.Override = last.Override || m.Override
			continue
		}
		merged = append(merged, m)
	}

	for i := range merged {
		merged[i].KeyTimestamps = tidyKeyTimestamps(merged[i].KeyTimestamps, merged[i].StartSec, merged[i].EndSec)
	}
	return merged
}

func tidyKeyTimestamps(ts []float64, startSec, endSec float64) []float64 {
	if len(ts) == 0 {
		return nil
	}
	kept := make([]float64, 0, len(ts))
	for _, t := range ts {
		if t < startSec || t > endSec {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return nil
	}
	sort.Float64s(kept)
	out := kept[:1]
	for _, t := range kept[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}

func truncateWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ")
}
