// SPDX-License-Identifier: MIT

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscript_Empty(t *testing.T) {
	assert.True(t, Transcript{}.Empty())
	assert.True(t, Transcript{Segments: []TranscriptSegment{{StartSec: 0, EndSec: 1}}}.Empty())
	assert.False(t, Transcript{Segments: []TranscriptSegment{{Text: "hi"}}}.Empty())
}

func TestTranscript_FullText(t *testing.T) {
	tr := Transcript{Segments: []TranscriptSegment{
		{StartSec: 0, EndSec: 2, Text: "Hello"},
		{StartSec: 2, EndSec: 4, Text: ""},
		{StartSec: 4, EndSec: 6, Text: "world"},
	}}
	assert.Equal(t, "Hello world", tr.FullText())
	assert.Equal(t, "", Transcript{}.FullText())
}

func TestDurations(t *testing.T) {
	assert.InDelta(t, 2.5, TranscriptSegment{StartSec: 1.0, EndSec: 3.5}.Duration(), 1e-9)
	assert.InDelta(t, 10.0, Moment{StartSec: 5, EndSec: 15}.Duration(), 1e-9)
}
