// SPDX-License-Identifier: MIT

package stt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldoc/reeldoc/internal/model"
)

type fakeTranscriber struct {
	name      string
	available bool
	result    model.Transcript
	err       error
	calls     int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _, _ string) (model.Transcript, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeTranscriber) Available() bool { return f.available }
func (f *fakeTranscriber) Name() string    { return f.name }

func healthyFake(name string) *fakeTranscriber {
	return &fakeTranscriber{
		name:      name,
		available: true,
		result: model.Transcript{
			Segments: []model.TranscriptSegment{seg(0, 2, "hello from " + name)},
		},
	}
}

func TestSelector_FastPrefersLocal(t *testing.T) {
	local := healthyFake("local")
	remote := healthyFake("remote")
	sel := NewSelector(local, remote, 0)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceFast, 100)
	require.NoError(t, err)

	assert.Equal(t, "local", out.Transcript.AdapterUsed)
	assert.False(t, out.FellBack)
	assert.Equal(t, 1, local.calls)
	assert.Zero(t, remote.calls)
}

func TestSelector_AccuratePrefersRemote(t *testing.T) {
	local := healthyFake("local")
	remote := healthyFake("remote")
	sel := NewSelector(local, remote, 0)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceAccurate, 100)
	require.NoError(t, err)

	assert.Equal(t, "remote", out.Transcript.AdapterUsed)
	assert.Zero(t, local.calls)
}

func TestSelector_FallsBackWhenPrimaryFails(t *testing.T) {
	local := healthyFake("local")
	local.err = errors.New("model blew up")
	local.result = model.Transcript{}
	remote := healthyFake("remote")
	sel := NewSelector(local, remote, 0)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceFast, 100)
	require.NoError(t, err)

	assert.True(t, out.FellBack)
	assert.Equal(t, "remote", out.Transcript.AdapterUsed)
	require.Error(t, out.PrimaryErr)
	assert.Contains(t, out.PrimaryErr.Error(), "model blew up")
}

func TestSelector_FallsBackWhenPrimaryUnavailable(t *testing.T) {
	local := &fakeTranscriber{name: "local", available: false}
	remote := healthyFake("remote")
	sel := NewSelector(local, remote, 0)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceFast, 100)
	require.NoError(t, err)

	assert.True(t, out.FellBack)
	assert.Equal(t, "remote", out.Transcript.AdapterUsed)
	assert.Zero(t, local.calls, "unavailable adapter must not be invoked")
}

func TestSelector_AllAdaptersFail(t *testing.T) {
	local := healthyFake("local")
	local.err = errors.New("local broken")
	remote := healthyFake("remote")
	remote.err = errors.New("remote broken")
	sel := NewSelector(local, remote, 0)

	_, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceFast, 100)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all transcribers failed")
	assert.Contains(t, err.Error(), "local broken")
	assert.Contains(t, err.Error(), "remote broken")
}

func TestSelector_AutoShortAudioPrefersLocal(t *testing.T) {
	local := healthyFake("local")
	remote := healthyFake("remote")
	sel := NewSelector(local, remote, 300)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceAuto, 120)
	require.NoError(t, err)
	assert.Equal(t, "local", out.Transcript.AdapterUsed)
}

func TestSelector_AutoLongAudioPrefersRemote(t *testing.T) {
	local := &fakeTranscriber{name: "local", available: false}
	remote := healthyFake("remote")
	sel := NewSelector(local, remote, 300)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceAuto, 600)
	require.NoError(t, err)

	assert.Equal(t, "remote", out.Transcript.AdapterUsed)
	assert.False(t, out.FellBack)
}

func TestSelector_AutoLongAudioKeepsHealthyLocal(t *testing.T) {
	local := healthyFake("local")
	remote := healthyFake("remote")
	sel := NewSelector(local, remote, 300)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceAuto, 600)
	require.NoError(t, err)
	assert.Equal(t, "local", out.Transcript.AdapterUsed)
}

func TestSelector_NormalizesAdapterOutput(t *testing.T) {
	local := healthyFake("local")
	local.result = model.Transcript{Segments: []model.TranscriptSegment{
		seg(4, 6, "second"),
		seg(2, 0, "first"),
	}}
	sel := NewSelector(local, nil, 0)

	out, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceFast, 100)
	require.NoError(t, err)

	require.Len(t, out.Transcript.Segments, 2)
	assert.Equal(t, "first", out.Transcript.Segments[0].Text)
	assert.InDelta(t, 0, out.Transcript.Segments[0].StartSec, 0.001)
}

func TestSelector_CancelledContext(t *testing.T) {
	local := healthyFake("local")
	sel := NewSelector(local, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sel.Transcribe(ctx, "audio.wav", "en", PreferenceFast, 100)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, local.calls)
}

func TestSelector_NoAdaptersConfigured(t *testing.T) {
	sel := NewSelector(nil, nil, 0)

	_, err := sel.Transcribe(context.Background(), "audio.wav", "en", PreferenceAuto, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcriber configured")
}

func TestValidPreference(t *testing.T) {
	assert.True(t, ValidPreference(PreferenceAuto))
	assert.True(t, ValidPreference(PreferenceFast))
	assert.True(t, ValidPreference(PreferenceAccurate))
	assert.False(t, ValidPreference(""))
	assert.False(t, ValidPreference("best"))
}
