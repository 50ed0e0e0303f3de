// SPDX-License-Identifier: MIT

package whisperremote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF-fake-audio-bytes"), 0o600))
	return path
}

func TestClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.wav", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "RIFF-fake-audio-bytes", string(content))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"language": "english",
			"duration": 8.4,
			"text": "Hello world. Second part.",
			"segments": [
				{"id": 0, "start": 0.0, "end": 3.2, "text": " Hello world."},
				{"id": 1, "start": 3.2, "end": 3.4, "text": "   "},
				{"id": 2, "start": 3.4, "end": 8.4, "text": " Second part."}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	tr, err := c.Transcribe(context.Background(), writeAudioFixture(t), "en")
	require.NoError(t, err)

	assert.Equal(t, "english", tr.Language)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "Hello world.", tr.Segments[0].Text)
	assert.InDelta(t, 3.4, tr.Segments[1].StartSec, 0.001)
	assert.Equal(t, "Second part.", tr.Segments[1].Text)
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"language": "english", "duration": 1.0, "text": "ok", "segments": [{"start": 0, "end": 1, "text": "ok"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	tr, err := c.Transcribe(context.Background(), writeAudioFixture(t), "")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, tr.Segments, 1)
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithMaxRetries(1))
	_, err := c.Transcribe(context.Background(), writeAudioFixture(t), "")

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestClient_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "unsupported file"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Transcribe(context.Background(), writeAudioFixture(t), "")

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "unsupported file")
}

func TestClient_TextOnlyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"language": "english", "duration": 5.5, "text": " Hello there. "}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	tr, err := c.Transcribe(context.Background(), writeAudioFixture(t), "")
	require.NoError(t, err)

	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "Hello there.", tr.Segments[0].Text)
	assert.InDelta(t, 0, tr.Segments[0].StartSec, 0.001)
	assert.InDelta(t, 5.5, tr.Segments[0].EndSec, 0.001)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Transcribe(ctx, writeAudioFixture(t), "")
	require.Error(t, err)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestClient_MissingAudioFile(t *testing.T) {
	c := NewClient("test-key")
	_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read audio")
}

func TestClient_Available(t *testing.T) {
	assert.False(t, NewClient("").Available())
	assert.True(t, NewClient("key").Available())
	assert.True(t, NewClient("", WithBaseURL("http://127.0.0.1:9999/v1")).Available())
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "remote", NewClient("").Name())
}
