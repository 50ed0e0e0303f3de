// SPDX-License-Identifier: MIT

package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldoc/reeldoc/internal/model"
)

func seg(start, end float64, text string) model.TranscriptSegment {
	return model.TranscriptSegment{StartSec: start, EndSec: end, Text: text}
}

func TestNormalize_SortsAndKeepsGaps(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{
		seg(10, 12, "later"),
		seg(0, 2, "first"),
		seg(5, 7, "middle"),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "middle", got[1].Text)
	assert.Equal(t, "later", got[2].Text)
}

func TestNormalize_FlipsBackwardSegments(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{seg(5, 2, "flipped")})

	require.Len(t, got, 1)
	assert.InDelta(t, 2, got[0].StartSec, 0.001)
	assert.InDelta(t, 5, got[0].EndSec, 0.001)
}

func TestNormalize_DropsEmptyText(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{
		seg(0, 1, "  "),
		seg(1, 2, "kept"),
		seg(2, 3, ""),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)

	assert.Nil(t, Normalize([]model.TranscriptSegment{seg(0, 1, " ")}))
	assert.Nil(t, Normalize(nil))
}

func TestNormalize_MergesTouchingRepeats(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{
		seg(0, 2, "Thanks for watching."),
		seg(2, 4, "Thanks for watching."),
		seg(3.5, 6, "Thanks for watching."),
	})

	require.Len(t, got, 1)
	assert.InDelta(t, 0, got[0].StartSec, 0.001)
	assert.InDelta(t, 6, got[0].EndSec, 0.001)
}

func TestNormalize_KeepsDistantRepeats(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{
		seg(0, 2, "okay"),
		seg(10, 12, "okay"),
	})

	require.Len(t, got, 2)
}

func TestNormalize_SplitsOverlapAtMidpoint(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{
		seg(0, 4, "alpha"),
		seg(2, 6, "beta"),
	})

	require.Len(t, got, 2)
	assert.InDelta(t, 3, got[0].EndSec, 0.001)
	assert.InDelta(t, 3, got[1].StartSec, 0.001)
	assert.InDelta(t, 6, got[1].EndSec, 0.001)
}

func TestNormalize_DropsSwallowedSegment(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{
		seg(0, 10, "outer"),
		seg(2, 3, "inner"),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "outer", got[0].Text)
	assert.InDelta(t, 6, got[0].EndSec, 0.001)
}

func TestNormalize_ClampsNegativeStart(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{seg(-1, 2, "early")})

	require.Len(t, got, 1)
	assert.InDelta(t, 0, got[0].StartSec, 0.001)
}

func TestNormalize_ResultSatisfiesInvariants(t *testing.T) {
	got := Normalize([]model.TranscriptSegment{
		seg(3, 1, "b"),
		seg(0, 2.5, "a"),
		seg(2, 4, "c"),
		seg(4, 4, "zero"),
	})

	for i, s := range got {
		assert.Greater(t, s.EndSec, s.StartSec, "segment %d", i)
		if i > 0 {
			assert.GreaterOrEqual(t, s.StartSec, got[i-1].EndSec, "segment %d overlaps predecessor", i)
		}
	}
}
