// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the pipeline.
const (
	// Session attributes
	SessionIDKey   = "session.id"
	SessionModeKey = "session.mode"

	// Stage attributes
	StageNameKey     = "stage.name"
	StageDurationKey = "stage.duration_ms"

	// Media attributes
	MediaDurationKey   = "media.duration_sec"
	MediaContainerKey  = "media.container"
	MediaVideoCodecKey = "media.video_codec"
	MediaWidthKey      = "media.width"
	MediaHeightKey     = "media.height"

	// STT attributes
	STTAdapterKey  = "stt.adapter"
	STTLanguageKey = "stt.language"
	STTSegmentsKey = "stt.segments"
	STTFallbackKey = "stt.fallback"

	// LLM attributes
	LLMProviderKey     = "llm.provider"
	LLMModelKey        = "llm.model"
	LLMInputTokensKey  = "llm.input_tokens"
	LLMOutputTokensKey = "llm.output_tokens"

	// Error attributes
	ErrorKey     = "error"
	ErrorKindKey = "error.kind"
)

// SessionAttributes creates per-session span attributes.
func SessionAttributes(sessionID, mode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(SessionModeKey, mode),
	}
}

// StageAttributes creates stage-level span attributes.
func StageAttributes(stage string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StageNameKey, stage),
		attribute.Int64(StageDurationKey, durationMS),
	}
}

// MediaAttributes creates span attributes describing a probed source.
func MediaAttributes(durationSec float64, container, videoCodec string, width, height int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Float64(MediaDurationKey, durationSec),
		attribute.String(MediaContainerKey, container),
	}
	if videoCodec != "" {
		attrs = append(attrs,
			attribute.String(MediaVideoCodecKey, videoCodec),
			attribute.Int(MediaWidthKey, width),
			attribute.Int(MediaHeightKey, height),
		)
	}
	return attrs
}

// STTAttributes creates transcription span attributes.
func STTAttributes(adapter, language string, segments int, fallback bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(STTAdapterKey, adapter),
		attribute.Int(STTSegmentsKey, segments),
	}
	if language != "" {
		attrs = append(attrs, attribute.String(STTLanguageKey, language))
	}
	if fallback {
		attrs = append(attrs, attribute.Bool(STTFallbackKey, true))
	}
	return attrs
}

// LLMAttributes creates span attributes for a model call.
func LLMAttributes(provider, model string, inputTokens, outputTokens int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LLMProviderKey, provider),
		attribute.String(LLMModelKey, model),
		attribute.Int64(LLMInputTokensKey, inputTokens),
		attribute.Int64(LLMOutputTokensKey, outputTokens),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorKindKey, kind),
	}
}
