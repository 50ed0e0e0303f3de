// SPDX-License-Identifier: MIT

package frames

import (
	"math"
	"sort"

	"github.com/reeldoc/reeldoc/internal/model"
)

// DefaultDensity is the target sampling rate in frames per moment-second.
const DefaultDensity = 1.0

// PlanTimestamps turns relevant moments into capture timestamps. Each moment
// wants ceil(length*density) frames; when the total exceeds maxFrames the
// budget is distributed proportionally to moment length. Analyzer-provided
// key timestamps are seeded first, before even spacing fills the rest.
// All returned timestamps are clamped to [0, duration) and sorted.
func PlanTimestamps(moments []model.Moment, duration float64, maxFrames int, density float64) []float64 {
	if len(moments) == 0 || duration <= 0 || maxFrames <= 0 {
		return nil
	}
	if density <= 0 {
		density = DefaultDensity
	}

	wants := make([]int, len(moments))
	var totalWant int
	var totalLen float64
	for i, m := range moments {
		l := m.Duration()
		if l < 0 {
			l = 0
		}
		w := int(math.Ceil(l * density))
		if w < 1 {
			w = 1
		}
		wants[i] = w
		totalWant += w
		totalLen += l
	}

	if totalWant > maxFrames {
		wants = distribute(moments, totalLen, maxFrames)
	}

	var out []float64
	for i, m := range moments {
		out = append(out, momentTimestamps(m, wants[i])...)
	}

	for i, ts := range out {
		out[i] = clamp(ts, duration)
	}
	sort.Float64s(out)
	if len(out) > maxFrames {
		out = out[:maxFrames]
	}
	return out
}

// distribute splits maxFrames across moments proportionally to their length,
// with at least one frame per moment. Longest moments give up frames first
// when the minimums push the sum over budget.
func distribute(moments []model.Moment, totalLen float64, maxFrames int) []int {
	allocs := make([]int, len(moments))
	sum := 0
	for i, m := range moments {
		share := 1
		if totalLen > 0 {
			share = int(math.Round(float64(maxFrames) * m.Duration() / totalLen))
		}
		if share < 1 {
			share = 1
		}
		allocs[i] = share
		sum += share
	}

	for sum > maxFrames {
		largest := 0
		for i := range allocs {
			if allocs[i] > allocs[largest] {
				largest = i
			}
		}
		if allocs[largest] <= 1 {
			break // every moment keeps its single frame even over budget
		}
		allocs[largest]--
		sum--
	}
	return allocs
}

// momentTimestamps spaces n capture points within a moment, preferring the
// analyzer's key timestamps when it supplied any.
func momentTimestamps(m model.Moment, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, 0, n)
	for _, ts := range m.KeyTimestamps {
		if len(out) == n {
			return out
		}
		if ts >= m.StartSec && ts <= m.EndSec {
			out = append(out, ts)
		}
	}

	remaining := n - len(out)
	if remaining <= 0 {
		return out
	}

	// Midpoint sampling keeps the first and last frame off the exact
	// moment boundaries.
	length := m.Duration()
	if length <= 0 {
		return append(out, m.StartSec)
	}
	step := length / float64(remaining)
	for i := 0; i < remaining; i++ {
		out = append(out, m.StartSec+(float64(i)+0.5)*step)
	}
	return out
}

func clamp(ts, duration float64) float64 {
	if ts < 0 {
		return 0
	}
	// Strictly below duration so a grab at the very end still decodes.
	limit := duration - 0.05
	if limit < 0 {
		limit = 0
	}
	if ts > limit {
		return limit
	}
	return ts
}
