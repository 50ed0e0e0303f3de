// SPDX-License-Identifier: MIT

package fault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"classified", New(InputTooLarge, "probe", "duration 901s", nil), InputTooLarge},
		{"wrapped classified", fmt.Errorf("outer: %w", New(Cancelled, "", "", nil)), Cancelled},
		{"context canceled", context.Canceled, Cancelled},
		{"deadline exceeded", context.DeadlineExceeded, StageTimeout},
		{"plain error", errors.New("boom"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrap_PassesThroughClassified(t *testing.T) {
	orig := New(FrameExtractionFailed, "extract_keyframes", "no frames", nil)
	wrapped := Wrap(orig, "generate", Internal)
	assert.Equal(t, FrameExtractionFailed, KindOf(wrapped))
	assert.Equal(t, "extract_keyframes", StageOf(wrapped))
}

func TestWrap_CancellationWinsOverFallback(t *testing.T) {
	err := Wrap(fmt.Errorf("adapter: %w", context.Canceled), "transcribe", TranscriptionUnavailable)
	assert.Equal(t, Cancelled, KindOf(err))
}

func TestWrap_DeadlineMapsToStageTimeout(t *testing.T) {
	err := Wrap(context.DeadlineExceeded, "relevance", RelevanceUnavailable)
	assert.Equal(t, StageTimeout, KindOf(err))
	assert.Equal(t, "relevance", StageOf(err))
}

func TestWrap_FallbackKindForForeignErrors(t *testing.T) {
	err := Wrap(errors.New("ffmpeg exploded"), "proxy", PreprocessingFailed)
	assert.Equal(t, PreprocessingFailed, KindOf(err))
	assert.Equal(t, "ffmpeg exploded", DetailOf(err))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "probe", Internal))
}

func TestNew_DetailSanitized(t *testing.T) {
	long := strings.Repeat("x", 300)
	err := New(Internal, "", "line1\nline2 "+long, nil)
	detail := DetailOf(err)
	assert.NotContains(t, detail, "\n")
	assert.LessOrEqual(t, len(detail), 163)
	assert.True(t, strings.HasSuffix(detail, "..."))
}

func TestError_UnwrapChain(t *testing.T) {
	cause := errors.New("root cause")
	err := New(PreprocessingFailed, "proxy", "", cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "root cause", err.Error())
}

func TestExitCode_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"input invalid", New(InputInvalid, "", "not a file", nil), ExitInputInvalid},
		{"input too large", New(InputTooLarge, "probe", "", nil), ExitInputInvalid},
		{"pipeline failure", New(PreprocessingFailed, "proxy", "", nil), ExitPipelineError},
		{"format failure", New(OutputFormatInvalid, "generate", "", nil), ExitPipelineError},
		{"cancelled", New(Cancelled, "", "", nil), ExitCancelled},
		{"stage timeout", New(StageTimeout, "transcribe", "", nil), ExitTimeout},
		{"stale timeout", New(StaleTimeout, "", "", nil), ExitTimeout},
		{"unclassified", errors.New("boom"), ExitPipelineError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestKindExitCode_FromStoredString(t *testing.T) {
	// Error records persist the kind as a string; the mapping must survive
	// the round trip, and foreign strings count as pipeline errors.
	assert.Equal(t, ExitCancelled, Kind("cancelled").ExitCode())
	assert.Equal(t, ExitTimeout, Kind("stage_timeout").ExitCode())
	assert.Equal(t, ExitInputInvalid, Kind("input_invalid").ExitCode())
	assert.Equal(t, ExitPipelineError, Kind("bogus").ExitCode())
	assert.Equal(t, ExitOK, KindNone.ExitCode())
}

func TestRecordOf_Shape(t *testing.T) {
	err := New(StageTimeout, "transcribe", "stt stalled", nil)
	rec := RecordOf(err, "sess-1")
	assert.Equal(t, StageTimeout, rec.Kind)
	assert.Equal(t, "stt stalled", rec.Message)
	assert.Equal(t, "transcribe", rec.Stage)
	assert.Equal(t, "sess-1", rec.SessionID)

	assert.Equal(t, Record{}, RecordOf(nil, "sess-1"))
}

func TestKind_Valid(t *testing.T) {
	for _, k := range []Kind{
		InputInvalid, InputTooLarge, PreprocessingFailed,
		TranscriptionRequired, TranscriptionUnavailable, RelevanceUnavailable,
		FrameExtractionFailed, OutputFormatInvalid, StageTimeout,
		Cancelled, StaleTimeout, Internal,
	} {
		assert.True(t, k.Valid(), "kind %q should be valid", k)
	}
	assert.False(t, KindNone.Valid())
	assert.False(t, Kind("bogus").Valid())
}
