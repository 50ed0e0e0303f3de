// SPDX-License-Identifier: MIT

// Package pipeline drives one session through the six stages: probe,
// proxy, transcribe, select moments, extract keyframes, generate. The
// Runner owns stage sequencing, timeouts, admission gates, progress and
// tracing; all media and model work happens behind the capability ports
// below, and all session state changes go through the session manager.
package pipeline

import (
	"context"

	"github.com/reeldoc/reeldoc/internal/generate"
	"github.com/reeldoc/reeldoc/internal/media/probe"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
	"github.com/reeldoc/reeldoc/internal/relevance"
	"github.com/reeldoc/reeldoc/internal/stt"
)

// Prober reads container metadata from a local media file.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.MediaInfo, error)
}

// Transcoder produces the low-fps analysis proxy and the STT audio track.
type Transcoder interface {
	BuildProxy(ctx context.Context, source, output string, width, height int) error
	ExtractAudio(ctx context.Context, source, output string) error
}

// SpeechToText resolves the session's adapter preference and transcribes
// the audio track, falling back to the alternative adapter on failure.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioPath, language, preference string, durationSec float64) (stt.Outcome, error)
}

// MomentAnalyzer selects the relevant moments of the video.
type MomentAnalyzer interface {
	Analyze(ctx context.Context, req relevance.Request) (relevance.Result, error)
}

// FrameExtractor grabs full-resolution stills from the original source.
type FrameExtractor interface {
	Extract(ctx context.Context, source, framesDir string, timestamps []float64) ([]model.Keyframe, error)
}

// DocGenerator turns transcript, moments and keyframes into the final
// document payload.
type DocGenerator interface {
	Generate(ctx context.Context, req generate.Request) (model.Document, error)
}

// PromptSource resolves mode IDs to immutable prompt records.
type PromptSource interface {
	Get(id string) (*prompt.Record, error)
}

// Result is a completed run: the document plus everything needed to serve
// GetResult without re-reading artifacts.
type Result struct {
	SessionID      string            `json:"session_id"`
	Doc            model.Document    `json:"doc"`
	Artifacts      map[string]string `json:"artifacts"` // logical name -> session-relative path
	Transcript     model.Transcript  `json:"transcript"`
	Keyframes      []model.Keyframe  `json:"keyframes"`
	STTAdapterUsed string            `json:"stt_adapter_used,omitempty"`
}
